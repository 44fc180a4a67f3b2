package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	play   key.Binding
	search key.Binding
	remove key.Binding
	reload key.Binding
	scope  key.Binding
	back   key.Binding
	quit   key.Binding
	abort  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		search: key.NewBinding(key.WithKeys("/", "s"), key.WithHelp("/", "search")),
		remove: key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		scope:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "scope")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		abort:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.play},
		{k.search, k.scope, k.back},
		{k.remove, k.reload, k.quit},
	}
}
