// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ContinueView] : Resume, remove and reload continue-watching entries
//  2. [SearchView] : Search every catalog provider and start playback
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
//
// Search is debounced: each keystroke schedules a tagged tick after [SearchDebounce], and only the tick carrying the
// latest tag dispatches a request. Requests already in flight are not canceled and their results are shown as they arrive.
//
// When the progress file changes on disk (another `luna` command, or a second terminal), its name arrives on
// [Options.Changes] and the list is reloaded. Settings changes are pushed in with [SettingsChangedMsg].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, /, d, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
