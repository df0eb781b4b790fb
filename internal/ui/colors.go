package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette(Colors{
	Title:  "#1DB954",
	OK:     "#04B575",
	Error:  "#FF5F56",
	Warn:   "#FFA500",
	Help:   "#626262",
	Accent: "#7D56F4",
})

// Colors holds the hex colors of a [Palette].
type Colors struct {
	Title, OK, Error, Warn, Help, Accent string
}

// Palette is a small stylesheet of named [lipgloss.Style] fields.
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	accent lipgloss.Style
	badge  lipgloss.Style
	box    lipgloss.Style
}

func NewPalette(c Colors) *Palette {
	return &Palette{
		title:  NewBold(c.Title).MarginBottom(1),
		ok:     NewBold(c.OK),
		err:    NewBold(c.Error),
		warn:   NewStyle(c.Warn),
		help:   NewEm(c.Help),
		accent: NewBold(c.Accent),
		badge:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color(c.Accent)).Padding(0, 1),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(c.Accent)).
			Padding(1, 2),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
