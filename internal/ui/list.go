package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodify/internal/models"
)

var (
	_ list.Item = moodItem{}
	_ list.Item = playlistItem{}
)

// moodItem wraps [models.Mood] to implement [list.Item].
type moodItem struct {
	mood models.Mood
}

func (i moodItem) FilterValue() string { return i.mood.Name }
func (i moodItem) Title() string       { return fmt.Sprintf("%s %s", i.mood.Emoji, i.mood.Title()) }
func (i moodItem) Description() string { return strings.Join(i.mood.Terms, ", ") }

// playlistItem wraps [models.PlaylistSummary] to implement [list.Item].
type playlistItem struct {
	playlist models.PlaylistSummary
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	var parts []string
	if i.playlist.Owner != "" {
		parts = append(parts, i.playlist.Owner)
	}
	if i.playlist.TrackCount > 0 {
		parts = append(parts, fmt.Sprintf("%d tracks", i.playlist.TrackCount))
	}
	if i.playlist.Description != "" {
		parts = append(parts, i.playlist.Description)
	}
	return strings.Join(parts, " • ")
}

func moodItems(moods []models.Mood) []list.Item {
	items := make([]list.Item, len(moods))
	for i, m := range moods {
		items[i] = moodItem{mood: m}
	}
	return items
}

func playlistItems(playlists []models.PlaylistSummary) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p}
	}
	return items
}

func newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}
