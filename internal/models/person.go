package models

// Person is a cast or crew member with their credits.
type Person struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Biography    string `json:"biography,omitempty"`
	Birthday     string `json:"birthday,omitempty"`
	PlaceOfBirth string `json:"place_of_birth,omitempty"`
	Department   string `json:"known_for_department,omitempty"`
	ProfileURL   string `json:"profile_url,omitempty"`

	// KnownFor holds the best rated credits, Filmography the most recent ones.
	KnownFor    []Credit `json:"known_for"`
	Filmography []Credit `json:"filmography"`
}

// Credit is one title a [Person] appeared in.
type Credit struct {
	Kind        TitleKind `json:"kind"`
	ID          int       `json:"id"`
	Name        string    `json:"title"`
	Character   string    `json:"character,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Rating      float64   `json:"rating"`
	ReleaseDate string    `json:"release_date,omitempty"`
}

// Year returns the four-digit year prefix of ReleaseDate, or "".
func (c Credit) Year() string {
	if len(c.ReleaseDate) >= 4 {
		return c.ReleaseDate[:4]
	}
	return ""
}
