package models

import "time"

// Sport is a sports category offered by the aggregator.
type Sport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Team is one side of a match.
type Team struct {
	Name  string `json:"name"`
	Badge string `json:"badge,omitempty"`
}

// MatchSource identifies where streams for a match can be fetched.
type MatchSource struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// Match is a scheduled or live event.
type Match struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	Date     time.Time     `json:"date"`
	Poster   string        `json:"poster,omitempty"`
	Popular  bool          `json:"popular"`
	Home     *Team         `json:"home,omitempty"`
	Away     *Team         `json:"away,omitempty"`
	Sources  []MatchSource `json:"sources"`
}

// Stream is an embeddable candidate for a match source.
type Stream struct {
	ID       string `json:"id"`
	StreamNo int    `json:"stream_no"`
	Language string `json:"language"`
	HD       bool   `json:"hd"`
	EmbedURL string `json:"embed_url"`
	Source   string `json:"source"`
}
