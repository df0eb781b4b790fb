package models

import (
	"strings"
	"time"
)

// Credential is the bearer credential issued by the token endpoint.
//
// A zero ExpiresAt means the expiry is unknown. RefreshToken is kept for completeness; no refresh grant is performed.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the credential has a known expiry at or before now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// AuthState is the sign-in state of the session.
type AuthState int

const (
	SignedOut AuthState = iota
	AwaitingRedirect
	SignedIn
)

func (s AuthState) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case AwaitingRedirect:
		return "awaiting redirect"
	case SignedIn:
		return "signed in"
	default:
		return "unknown"
	}
}

// SearchQuery is an ordered set of search terms and the page size used for every request in its pagination sequence.
type SearchQuery struct {
	Terms    []string
	PageSize int
}

// NewSearchQuery splits text on whitespace into terms.
func NewSearchQuery(text string, pageSize int) SearchQuery {
	return SearchQuery{Terms: strings.Fields(text), PageSize: pageSize}
}

// Text joins the terms with single spaces.
func (q SearchQuery) Text() string {
	return strings.Join(q.Terms, " ")
}

// Equal compares terms and page size.
func (q SearchQuery) Equal(other SearchQuery) bool {
	if q.PageSize != other.PageSize || len(q.Terms) != len(other.Terms) {
		return false
	}
	for i := range q.Terms {
		if q.Terms[i] != other.Terms[i] {
			return false
		}
	}
	return true
}

// PlaylistSummary is one playlist search result. Identity is ID only.
type PlaylistSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
	Owner       string `json:"owner,omitempty"`
	TrackCount  int    `json:"track_count,omitempty"`
}

// SameAs reports whether both summaries identify the same playlist.
func (p PlaylistSummary) SameAs(other PlaylistSummary) bool {
	return p.ID == other.ID
}

// ResultPage is a single page returned by the search endpoint.
type ResultPage struct {
	Items      []PlaylistSummary
	Offset     int
	IsLastPage bool
}

// SearchRecord is one entry of local search history.
type SearchRecord struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Pages     int       `json:"pages"`
	Results   int       `json:"results"`
	CreatedAt time.Time `json:"created_at"`
}
