package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"
	maxBodyBytes   = 4 << 20
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object as returned by search.
type SpotifySimplePlaylist struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Owner        owner                `json:"owner"`
	Tracks       simplePlaylistTracks `json:"tracks"`
	Images       []SpotifyImage       `json:"images"`
	ExternalURLs map[string]string    `json:"external_urls"`
	URI          string               `json:"uri"`
}

// Summary converts the API object to a [models.PlaylistSummary].
func (p SpotifySimplePlaylist) Summary() models.PlaylistSummary {
	s := models.PlaylistSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: html.UnescapeString(p.Description),
		ExternalURL: p.ExternalURLs["spotify"],
		Owner:       p.Owner.DisplayName,
		TrackCount:  p.Tracks.Total,
	}
	if len(p.Images) > 0 {
		s.ImageURL = p.Images[0].URL
	}
	return s
}

// searchResponse keeps items raw so one malformed entry cannot fail the page.
type searchResponse struct {
	Playlists *struct {
		Items []json.RawMessage `json:"items"`
	} `json:"playlists"`
}

type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// PlaylistSearcher fetches pages of playlist search results.
//
// Each call to [PlaylistSearcher.FetchPage] issues exactly one request, paced by a client-side rate limiter.
type PlaylistSearcher struct {
	tokens  TokenProvider
	client  HTTPDoer
	limiter *rate.Limiter
	baseURL string
	logger  *log.Logger
}

// SearcherConfig configures a [PlaylistSearcher]. A non-positive RateLimit disables pacing.
type SearcherConfig struct {
	BaseURL   string
	RateLimit float64
}

// NewPlaylistSearcher creates a new [PlaylistSearcher]. A nil client uses [http.DefaultClient].
func NewPlaylistSearcher(tokens TokenProvider, client HTTPDoer, cfg SearcherConfig, logger *log.Logger) *PlaylistSearcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &PlaylistSearcher{
		tokens:  tokens,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		baseURL: baseURL,
		logger:  logger,
	}
}

// CheckSignIn reports [shared.ErrNotAuthenticated] when no token is available, without sending a request.
func (s *PlaylistSearcher) CheckSignIn(ctx context.Context) error {
	_, err := s.tokens.AccessToken(ctx)
	return err
}

// searchURL builds the request URL. Terms are joined by single spaces and percent-encoded.
func (s *PlaylistSearcher) searchURL(q models.SearchQuery, offset int) string {
	text := strings.ReplaceAll(url.QueryEscape(q.Text()), "+", "%20")
	return fmt.Sprintf("%s/search?q=%s&type=playlist&limit=%s&offset=%s",
		s.baseURL, text, strconv.Itoa(q.PageSize), strconv.Itoa(offset))
}

// FetchPage requests one page of playlists for q starting at offset.
//
// Errors:
//   - [shared.ErrNotAuthenticated] : no token, no request is sent
//   - [shared.ErrNetwork] : transport failure
//   - [shared.ErrSessionExpired] : 401, the session is invalidated first
//   - [*shared.RemoteError] : any other non-200 status
//   - [shared.ErrDecoding] : 200 with an unexpected body
func (s *PlaylistSearcher) FetchPage(ctx context.Context, q models.SearchQuery, offset int) (*models.ResultPage, error) {
	if q.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", shared.ErrInvalidInput, q.PageSize)
	}
	if len(q.Terms) == 0 {
		return nil, fmt.Errorf("%w: search query has no terms", shared.ErrInvalidInput)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", shared.ErrInvalidInput, offset)
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL(q, offset), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("fetching page", "query", q.Text(), "offset", offset, "limit", q.PageSize)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("search request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.tokens.InvalidateSession(ctx)
		return nil, shared.ErrSessionExpired
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		remote := &shared.RemoteError{StatusCode: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
			remote.Message = env.Error.Message
		}
		s.logger.Warn("search returned an error", "status", remote.StatusCode, "message", remote.Message)
		return nil, remote
	}

	items, err := decodePlaylists(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched page", "offset", offset, "items", len(items))
	return &models.ResultPage{
		Items:      items,
		Offset:     offset,
		IsLastPage: len(items) < q.PageSize,
	}, nil
}

// decodePlaylists extracts the playlist items, dropping null, malformed and id-less entries.
func decodePlaylists(body []byte) ([]models.PlaylistSummary, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDecoding, err)
	}
	if sr.Playlists == nil {
		return nil, fmt.Errorf("%w: response has no playlists object", shared.ErrDecoding)
	}

	items := make([]models.PlaylistSummary, 0, len(sr.Playlists.Items))
	for _, raw := range sr.Playlists.Items {
		if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var p SpotifySimplePlaylist
		if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
			continue
		}
		items = append(items, p.Summary())
	}
	return items, nil
}
