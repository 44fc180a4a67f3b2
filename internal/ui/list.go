package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

var (
	_ list.Item = progressItem{}
	_ list.Item = titleItem{}
)

// progressItem wraps [models.WatchProgressEntry] to implement [list.Item].
type progressItem struct {
	entry models.WatchProgressEntry
}

func (i progressItem) FilterValue() string { return i.entry.Title }
func (i progressItem) Title() string       { return i.entry.Label() }
func (i progressItem) Description() string {
	desc := i.entry.Kind.String()
	if i.entry.DurationSeconds > 0 {
		desc = fmt.Sprintf("%s • %s / %s", desc,
			shared.FormatSeconds(i.entry.PositionSeconds), shared.FormatSeconds(i.entry.DurationSeconds))
	}
	return fmt.Sprintf("%s • %s", desc, i.entry.LastUpdatedAt.Local().Format("Jan 2 15:04"))
}

// titleItem wraps [models.Title] to implement [list.Item].
type titleItem struct {
	title models.Title
}

func (i titleItem) FilterValue() string { return i.title.Name }
func (i titleItem) Title() string {
	if year := i.title.Year(); year != "" {
		return fmt.Sprintf("%s (%s)", i.title.Name, year)
	}
	return i.title.Name
}
func (i titleItem) Description() string {
	parts := []string{string(i.title.Kind)}
	if i.title.Rating > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", i.title.Rating))
	}
	if len(i.title.Genres) > 0 {
		parts = append(parts, strings.Join(i.title.Genres, ", "))
	}
	return strings.Join(parts, " • ")
}

func progressItems(entries []models.WatchProgressEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = progressItem{entry: e}
	}
	return items
}

func titleItems(titles []models.Title) []list.Item {
	items := make([]list.Item, len(titles))
	for i, t := range titles {
		items[i] = titleItem{title: t}
	}
	return items
}
