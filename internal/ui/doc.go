// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a small mood browser:
//  1. [MoodView] : Pick a mood from the catalogue
//  2. [ResultsView] : Browse matching playlists, filter by name, load more, open in the browser
//  3. [SignInView] : Shown when the search requires a (new) Spotify sign-in
//  4. [ErrorView] : Shown when the first page of a search fails
//
// The [Model] never holds result state of its own. It subscribes to a [tasks.QuerySession] and renders the latest
// snapshot it receives as a [Msg]. Blocking work (searching, paging, signing in) runs inside tea.Cmd functions.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, /, m, l, o, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
