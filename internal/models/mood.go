package models

import (
	"fmt"
	"strings"
)

// Mood is a named preset that maps to a set of playlist search terms.
type Mood struct {
	Name  string
	Emoji string
	Terms []string
}

var moods = []Mood{
	{Name: "happy", Emoji: "😊", Terms: []string{"happy", "joy", "positive", "upbeat", "cheerful", "fun", "celebration"}},
	{Name: "sad", Emoji: "😢", Terms: []string{"sad", "melancholy", "heartbreak", "lonely", "emotional", "deep"}},
	{Name: "energetic", Emoji: "⚡", Terms: []string{"energetic", "workout", "party", "motivation", "power", "intense"}},
	{Name: "calm", Emoji: "🌊", Terms: []string{"calm", "relaxation", "peaceful", "meditation", "chill", "ambient"}},
	{Name: "romantic", Emoji: "💕", Terms: []string{"romantic", "love", "tender", "intimate", "passion", "sweet"}},
	{Name: "melancholic", Emoji: "🌧", Terms: []string{"melancholic", "nostalgia", "bittersweet", "reflective", "moody"}},
	{Name: "focused", Emoji: "🎯", Terms: []string{"focused", "focus", "attention", "concentration", "mental", "brain"}},
	{Name: "chill", Emoji: "🌙", Terms: []string{"chill", "relaxation", "peaceful", "meditation", "calm", "ambient"}},
}

// Moods returns the mood catalogue in display order.
func Moods() []Mood {
	out := make([]Mood, len(moods))
	copy(out, moods)
	return out
}

// ParseMood looks up a mood by name, ignoring case and surrounding space.
func ParseMood(name string) (Mood, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range moods {
		if m.Name == name {
			return m, nil
		}
	}
	return Mood{}, fmt.Errorf("unknown mood %q", name)
}

// Query builds the search query for this mood.
func (m Mood) Query(pageSize int) SearchQuery {
	terms := make([]string, len(m.Terms))
	copy(terms, m.Terms)
	return SearchQuery{Terms: terms, PageSize: pageSize}
}

// Title returns the capitalized mood name.
func (m Mood) Title() string {
	if m.Name == "" {
		return ""
	}
	return strings.ToUpper(m.Name[:1]) + m.Name[1:]
}
