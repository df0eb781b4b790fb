package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	open     key.Binding
	back     key.Binding
	filter   key.Binding
	loadMore key.Binding
	dismiss  key.Binding
	signIn   key.Binding
	signOut  key.Binding
	retry    key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		loadMore: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
		dismiss:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		signIn:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "sign in")),
		signOut:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.filter, k.loadMore, k.dismiss},
		{k.signIn, k.signOut, k.retry, k.quit},
	}
}
