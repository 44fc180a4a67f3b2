package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

const (
	// DefaultPlayer is used when no player is configured.
	DefaultPlayer = "videasy"
	// DefaultAccent is the player accent color, without '#'.
	DefaultAccent = "fbc9ff"
)

// Player is a third-party embed provider.
//
// URL templates use the placeholders {id}, {season}, {episode}, {color}, {audio} and {dubquery}.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	movie string
	tv    string
}

var players = []Player{
	{"xprime", "XPrime", "https://xprime.tv/watch/{id}", "https://xprime.tv/watch/{id}/{season}/{episode}"},
	{"videasy", "Videasy",
		"https://player.videasy.net/movie/{id}?color={color}&chromecast=false&nextEpisode=true&autoplayNextEpisode=true",
		"https://player.videasy.net/tv/{id}/{season}/{episode}?color={color}&chromecast=false&nextEpisode=true&autoplayNextEpisode=true"},
	{"vidify", "Vidify",
		"https://player.vidify.top/embed/movie/{id}?primarycolor={color}&chromecast=false&poster=true",
		"https://player.vidify.top/embed/tv/{id}/{season}/{episode}?primarycolor={color}&chromecast=false&poster=true"},
	{"vidplus", "VidPlus",
		"https://player.vidplus.to/embed/movie/{id}?primarycolor={color}&chromecast=false&nextButton=true&autoNext=true",
		"https://player.vidplus.to/embed/tv/{id}/{season}/{episode}?primarycolor={color}&chromecast=false&nextButton=true&autoNext=true"},
	{"vidfast", "VidFast",
		"https://vidfast.pro/movie/{id}?theme={color}&chromecast=false&nextButton=true&autoNext=true&poster=true",
		"https://vidfast.pro/tv/{id}/{season}/{episode}?theme={color}&chromecast=false&nextButton=true&autoNext=true&poster=true"},
	{"mapple", "Mapple",
		"https://mapple.uk/watch/movie/{id}?theme={color}&autoPlay=true&nextButton=true",
		"https://mapple.uk/watch/tv/{id}-{season}-{episode}?theme={color}&autoPlay=true&nextButton=true&autoNext=true"},
	{"vidsrc.cc", "vidsrc.cc",
		"https://vidsrc.cc/v3/embed/movie/{id}?poster=1&autoPlay=false",
		"https://vidsrc.cc/v3/embed/tv/{id}/{season}/{episode}?poster=1&autoPlay=false"},
	{"vidsrc.xyz", "vidsrc.xyz",
		"https://vidsrc.xyz/embed/movie/{id}?autoplay=1",
		"https://vidsrc.xyz/embed/tv/{id}/{season}-{episode}?autoplay=1&autonext=1"},
	{"vidzee", "VidZee", "https://player.vidzee.wtf/embed/movie/{id}", "https://player.vidzee.wtf/embed/tv/{id}/{season}/{episode}"},
	{"vidora", "Vidora",
		"https://vidora.su/movie/{id}?colour={color}&autonextepisode=true&pausescreen=true",
		"https://vidora.su/tv/{id}/{season}/{episode}?colour={color}&autonextepisode=true&pausescreen=true"},
	{"vidlink", "VidLink",
		"https://vidlink.pro/movie/{id}?primaryColor={color}&secondaryColor=a2a2a2&iconColor=eefdec&autoplay=false&nextbutton=true",
		"https://vidlink.pro/tv/{id}/{season}/{episode}?primaryColor={color}&secondaryColor=a2a2a2&iconColor=eefdec&autoplay=false&nextbutton=true"},
	{"vidrock", "VidRock",
		"https://vidrock.net/movie/{id}?theme={color}&autoplay=false&autonext=true&download=true&nextbutton=true",
		"https://vidrock.net/tv/{id}/{season}/{episode}?theme={color}&autoplay=false&autonext=true&download=true&nextbutton=true"},
	{"autoembed", "AutoEmbed", "https://player.autoembed.cc/embed/movie/{id}", "https://player.autoembed.cc/embed/tv/{id}/{season}/{episode}"},
	{"smashystream", "SmashyStream", "https://player.smashy.stream/movie/{id}", "https://player.smashy.stream/tv/{id}/{season}/{episode}"},
	{"moviesapi", "MoviesAPI", "https://moviesapi.club/movie/{id}", "https://moviesapi.club/tv/{id}/{season}/{episode}"},
	{"letsembed", "LetsEmbed", "https://letsembed.cc/embed/movie/?id={id}", "https://letsembed.cc/embed/tv/?id={id}/{season}/{episode}"},
	{"vidplay", "VidPlay", "https://vidplay.to/movie/{id}", "https://vidplay.to/series/{id}/{season}/{episode}"},
	{"vidnest", "VidNest", "https://vidnest.fun/movie/{id}", "https://vidnest.fun/tv/{id}/{season}/{episode}"},
	{"cinemaos", "CinemaOS", "https://cinemaos.tech/player/{id}", "https://cinemaos.tech/player/{id}/{season}/{episode}"},
	{"spenembed", "SpenEmbed", "https://spencerdevs.xyz/movie/{id}?theme={color}", "https://spencerdevs.xyz/tv/{id}/{season}/{episode}?theme={color}"},
	{"vidking", "VidKing",
		"https://www.vidking.net/embed/movie/{id}?color={color}&autoPlay=true",
		"https://www.vidking.net/embed/tv/{id}/{season}/{episode}?color={color}&autoPlay=true&nextEpisode=true&episodeSelector=true"},
	{"111movies", "111Movies", "https://111movies.com/movie/{id}", "https://111movies.com/tv/{id}/{season}/{episode}"},
	{"vixsrc", "VixSrc",
		"https://vixsrc.to/movie/{id}?primaryColor=B20710&secondaryColor=170000&autoplay=false&startAt=0&lang=en",
		"https://vixsrc.to/tv/{id}/{season}/{episode}?primaryColor=B20710&secondaryColor=170000&autoplay=false&startAt=0&lang=en"},
	{"vidsrc.cx", "Vidsrc.cx", "https://vidsrc.cx/embed/movie/{id}", "https://vidsrc.cx/embed/tv/{id}/{season}/{episode}"},
	{"bludclart", "BludClart", "https://watch.bludclart.com/movie/{id}/watch", "https://watch.bludclart.com/tv/{id}/{season}/{episode}"},
	{"vidup", "VidUp", "https://vidup.to/movie/{id}?autoPlay=true", "https://vidup.to/tv/{id}/{season}/{episode}?autoPlay=true"},
}

// Anime players only use the tv template, keyed by AniList id and episode.
var animePlayers = []Player{
	{ID: "videasy", Name: "Videasy", tv: "https://player.videasy.net/anime/{id}/{episode}{dubquery}"},
	{ID: "vidnest", Name: "VidNest", tv: "https://vidnest.fun/anime/{id}/{episode}/{audio}"},
}

// Players returns the movie and series players in display order.
func Players() []Player {
	return append([]Player(nil), players...)
}

// AnimePlayers returns the anime players in display order.
func AnimePlayers() []Player {
	return append([]Player(nil), animePlayers...)
}

// LookupPlayer finds a player by id for the given title kind.
func LookupPlayer(kind models.TitleKind, id string) (Player, bool) {
	table := players
	if kind == models.KindAnime {
		table = animePlayers
	}

	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range table {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// EmbedRequest describes what to play and how.
//
// Season and Episode default to 1 for series; Episode defaults to 1 for anime.
type EmbedRequest struct {
	Kind    models.TitleKind
	ID      int
	Season  int
	Episode int
	Player  string
	Accent  string
	Dub     bool
}

// EmbedURL builds the embed URL for a request.
//
// An empty player means [DefaultPlayer]; an empty accent means [DefaultAccent].
func EmbedURL(req EmbedRequest) (string, error) {
	if req.ID <= 0 {
		return "", fmt.Errorf("%w: id must be positive", shared.ErrInvalidArgument)
	}

	name := req.Player
	if strings.TrimSpace(name) == "" {
		name = DefaultPlayer
	}

	player, ok := LookupPlayer(req.Kind, name)
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrUnknownPlayer, name)
	}

	accent := strings.TrimPrefix(strings.TrimSpace(req.Accent), "#")
	if accent == "" {
		accent = DefaultAccent
	}

	season, episode := req.Season, req.Episode
	if season <= 0 {
		season = 1
	}
	if episode <= 0 {
		episode = 1
	}

	audio, dubQuery := "sub", ""
	if req.Dub {
		audio, dubQuery = "dub", "?dub=true"
	}

	var template string
	switch req.Kind {
	case models.KindMovie:
		template = player.movie
	case models.KindSeries, models.KindAnime:
		template = player.tv
	default:
		return "", fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidArgument, req.Kind)
	}

	return strings.NewReplacer(
		"{id}", strconv.Itoa(req.ID),
		"{season}", strconv.Itoa(season),
		"{episode}", strconv.Itoa(episode),
		"{color}", accent,
		"{audio}", audio,
		"{dubquery}", dubQuery,
	).Replace(template), nil
}

// ResumeURL builds the embed URL that resumes a continue-watching entry.
func ResumeURL(entry models.WatchProgressEntry, player, accent string) (string, error) {
	kind := models.KindMovie
	if entry.Kind == models.Series {
		kind = models.KindSeries
	}
	return EmbedURL(EmbedRequest{
		Kind:    kind,
		ID:      entry.SubjectID,
		Season:  entry.Season,
		Episode: entry.Episode,
		Player:  player,
		Accent:  accent,
	})
}
