package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lunastream/internal/formatter"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
)

// SearchDebounce is the quiet period after the last keystroke before a search is sent.
const SearchDebounce = 300 * time.Millisecond

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ContinueView ViewState = iota
	SearchView
)

var scopes = []tasks.SearchScope{tasks.ScopeAll, tasks.ScopeMovie, tasks.ScopeTV, tasks.ScopeAnime}

// SettingsSource provides the current display preferences.
type SettingsSource interface {
	Get() (models.Settings, error)
}

// Options holds the dependencies of a [Model].
type Options struct {
	Progress *tasks.ProgressEngine
	Catalog  *tasks.CatalogEngine
	Settings SettingsSource
	Open     func(url string) error // Defaults to [shared.OpenBrowser]
	Changes  <-chan string          // Progress file changes from localstore.Watch; nil disables live reload
	Debounce time.Duration          // Defaults to [SearchDebounce]
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	opts         Options
	view         ViewState
	width        int
	height       int
	entries      []models.WatchProgressEntry
	continueList list.Model
	resultList   list.Model
	input        textinput.Model
	scope        int
	searchTag    int
	searching    bool
	settings     models.Settings
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.Debounce <= 0 {
		opts.Debounce = SearchDebounce
	}

	input := textinput.New()
	input.Placeholder = "Search movies, shows and anime"
	input.CharLimit = 100

	return &Model{
		ctx:          ctx,
		opts:         opts,
		view:         ContinueView,
		continueList: newList("Continue Watching"),
		resultList:   newList("Results"),
		input:        input,
		settings:     models.DefaultSettings(),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	return l
}

// Init loads the continue-watching list and settings, and starts listening for store changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadProgress(), m.loadSettings(), m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.continueList.SetSize(msg.Width-4, msg.Height-6)
		m.resultList.SetSize(msg.Width-4, msg.Height-9)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ContinueView:
			return m.handleContinueKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressLoaded:
		m.entries = msg.data.([]models.WatchProgressEntry)
		return m, m.continueList.SetItems(progressItems(m.entries))

	case MsgSettingsLoaded:
		data := msg.data.(settingsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.settings = data.settings
		return m, nil

	case MsgSearchTick:
		data := msg.data.(searchTick)
		if data.tag != m.searchTag {
			return m, nil
		}
		if strings.TrimSpace(data.query) == "" {
			m.searching = false
			return m, m.resultList.SetItems(nil)
		}
		m.searching = true
		return m, m.search(data.tag, data.query)

	case MsgSearchResults:
		data := msg.data.(searchResults)
		if data.tag == m.searchTag {
			m.searching = false
		}
		return m, m.resultList.SetItems(titleItems(data.results))

	case MsgStoreChanged:
		return m, tea.Batch(m.loadProgress(), m.waitForChange())

	case MsgPlaybackStarted:
		data := msg.data.(playbackStarted)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Playing %s", data.label)
		return m, m.loadProgress()

	case MsgProgressRemoved:
		if err, _ := msg.data.(error); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = "Removed from continue watching"
		return m, m.loadProgress()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ContinueView:
		return m.renderContinue()
	case SearchView:
		return m.renderSearch()
	default:
		return ""
	}
}

func (m *Model) handleContinueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.status = ""
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.reload):
		return m, tea.Batch(m.loadProgress(), m.loadSettings())
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.continueList.SelectedItem().(progressItem); ok {
			return m, m.remove(item.entry)
		}
		return m, nil
	case key.Matches(msg, m.keys.play):
		if item, ok := m.continueList.SelectedItem().(progressItem); ok {
			return m, m.playEntry(item.entry)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.continueList, cmd = m.continueList.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.abort):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ContinueView
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.scope):
		m.scope = (m.scope + 1) % len(scopes)
		return m, m.debounce()
	case key.Matches(msg, m.keys.play):
		if item, ok := m.resultList.SelectedItem().(titleItem); ok {
			return m, m.playTitle(item.title)
		}
		return m, nil
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		var cmd tea.Cmd
		m.resultList, cmd = m.resultList.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.debounce())
}

// debounce supersedes any pending search tick with a new one for the current query.
func (m *Model) debounce() tea.Cmd {
	m.searchTag++
	tag, query := m.searchTag, m.input.Value()
	return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return searchTickMsg(tag, query)
	})
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ContinueView:
		m.continueList, cmd = m.continueList.Update(msg)
	case SearchView:
		m.resultList, cmd = m.resultList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadProgress() tea.Cmd {
	return func() tea.Msg {
		if m.opts.Progress == nil {
			return progressLoadedMsg([]models.WatchProgressEntry{})
		}
		return progressLoadedMsg(m.opts.Progress.Continue(m.ctx))
	}
}

func (m *Model) loadSettings() tea.Cmd {
	return func() tea.Msg {
		if m.opts.Settings == nil {
			return settingsLoadedMsg(models.DefaultSettings(), nil)
		}
		settings, err := m.opts.Settings.Get()
		return settingsLoadedMsg(settings, err)
	}
}

func (m *Model) waitForChange() tea.Cmd {
	if m.opts.Changes == nil {
		return nil
	}
	return func() tea.Msg {
		name, ok := <-m.opts.Changes
		if !ok {
			return nil
		}
		return storeChangedMsg(name)
	}
}

func (m *Model) search(tag int, query string) tea.Cmd {
	scope := scopes[m.scope]
	return func() tea.Msg {
		if m.opts.Catalog == nil {
			return searchResultsMsg(tag, query, []models.Title{})
		}
		return searchResultsMsg(tag, query, m.opts.Catalog.Search(m.ctx, query, scope, nil))
	}
}

func (m *Model) remove(entry models.WatchProgressEntry) tea.Cmd {
	return func() tea.Msg {
		if m.opts.Progress == nil {
			return progressRemovedMsg(fmt.Errorf("%w: no progress store", shared.ErrServiceUnavailable))
		}
		return progressRemovedMsg(m.opts.Progress.Remove(m.ctx, entry.SubjectID, entry.Kind))
	}
}

// playEntry resumes a continue-watching entry and records the playback start.
func (m *Model) playEntry(entry models.WatchProgressEntry) tea.Cmd {
	settings := m.settings
	return func() tea.Msg {
		url, err := formatter.ResumeURL(entry, settings.Player, settings.AccentColor)
		if err != nil {
			return playbackStartedMsg(entry.Label(), "", err)
		}

		kind := models.KindMovie
		if entry.Kind == models.Series {
			kind = models.KindSeries
		}
		title := models.Title{Kind: kind, ID: entry.SubjectID, Name: entry.Title, PosterURL: entry.PosterPath}
		return m.startPlayback(title, entry.Season, entry.Episode, entry.Label(), url)
	}
}

// playTitle starts a search result, resuming the stored episode of a series when there is one.
func (m *Model) playTitle(title models.Title) tea.Cmd {
	settings := m.settings
	season, episode := 1, 1
	for _, e := range m.entries {
		if e.HasEpisode() && title.Kind == models.KindSeries && e.SubjectID == title.ID {
			season, episode = e.Season, e.Episode
		}
	}

	return func() tea.Msg {
		req := formatter.EmbedRequest{Kind: title.Kind, ID: title.ID, Season: season, Episode: episode, Accent: settings.AccentColor}
		if title.Kind != models.KindAnime {
			req.Player = settings.Player
		}
		url, err := formatter.EmbedURL(req)
		if err != nil {
			return playbackStartedMsg(title.Name, "", err)
		}
		return m.startPlayback(title, season, episode, title.Name, url)
	}
}

func (m *Model) startPlayback(title models.Title, season, episode int, label, url string) tea.Msg {
	if _, tracked := title.Kind.MediaKind(); tracked && m.opts.Progress != nil {
		if err := m.opts.Progress.StartPlayback(m.ctx, title, season, episode); err != nil {
			return playbackStartedMsg(label, url, err)
		}
	}
	if err := m.opts.Open(url); err != nil {
		return playbackStartedMsg(label, url, fmt.Errorf("failed to open player: %w", err))
	}
	return playbackStartedMsg(label, url, nil)
}

func (m *Model) renderContinue() string {
	body := m.continueList.View()
	if len(m.entries) == 0 {
		body = fmt.Sprintf("%s\n\n%s", styles.title.Render("Continue Watching"),
			styles.help.Render("Nothing here yet. Press / to search for something to watch."))
	}

	helpKeys := []key.Binding{m.keys.play, m.keys.search, m.keys.remove, m.keys.reload, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s", body, m.renderStatus(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSearch() string {
	title := styles.title.Render(fmt.Sprintf("Search %s", styles.accent.Render("["+string(scopes[m.scope])+"]")))

	var state string
	switch {
	case m.searching:
		state = styles.warn.Render("Searching...")
	case strings.TrimSpace(m.input.Value()) != "" && len(m.resultList.Items()) == 0:
		state = styles.help.Render("No results")
	}

	helpKeys := []key.Binding{m.keys.play, m.keys.scope, m.keys.back, m.keys.abort}
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s",
		title, m.input.View(), state, m.resultList.View(), m.renderStatus(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.status != "" {
		return styles.ok.Render(m.status)
	}
	return ""
}
