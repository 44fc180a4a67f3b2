package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lunastream/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressLoaded MsgKind = iota
	MsgSettingsLoaded
	MsgSearchTick
	MsgSearchResults
	MsgStoreChanged
	MsgPlaybackStarted
	MsgProgressRemoved
)

type settingsLoaded struct {
	settings models.Settings
	err      error
}

type searchTick struct {
	tag   int
	query string
}

type searchResults struct {
	tag     int
	query   string
	results []models.Title
}

type playbackStarted struct {
	label string
	url   string
	err   error
}

// progressLoadedMsg is the constructor for [MsgProgressLoaded]
func progressLoadedMsg(entries []models.WatchProgressEntry) Msg {
	return Msg{kind: MsgProgressLoaded, data: entries}
}

// settingsLoadedMsg is the constructor for [MsgSettingsLoaded]
func settingsLoadedMsg(settings models.Settings, err error) Msg {
	return Msg{kind: MsgSettingsLoaded, data: settingsLoaded{settings, err}}
}

// SettingsChangedMsg delivers settings saved elsewhere, typically from a settings subscriber.
func SettingsChangedMsg(settings models.Settings) Msg {
	return settingsLoadedMsg(settings, nil)
}

// searchTickMsg is the constructor for [MsgSearchTick]
func searchTickMsg(tag int, query string) Msg {
	return Msg{kind: MsgSearchTick, data: searchTick{tag, query}}
}

// searchResultsMsg is the constructor for [MsgSearchResults]
func searchResultsMsg(tag int, query string, results []models.Title) Msg {
	return Msg{kind: MsgSearchResults, data: searchResults{tag, query, results}}
}

// storeChangedMsg is the constructor for [MsgStoreChanged]
func storeChangedMsg(name string) Msg {
	return Msg{kind: MsgStoreChanged, data: name}
}

// playbackStartedMsg is the constructor for [MsgPlaybackStarted]
func playbackStartedMsg(label, url string, err error) Msg {
	return Msg{kind: MsgPlaybackStarted, data: playbackStarted{label, url, err}}
}

// progressRemovedMsg is the constructor for [MsgProgressRemoved]
func progressRemovedMsg(err error) Msg {
	return Msg{kind: MsgProgressRemoved, data: err}
}
