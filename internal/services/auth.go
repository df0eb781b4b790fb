package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes requested on every sign-in.
var Scopes = []string{"playlist-read-private", "playlist-read-collaborative", "user-library-read"}

var _ TokenProvider = (*AuthManager)(nil)

// AuthManager owns the sign-in state and the stored credential.
//
// SignedIn is derived from the [CredentialRepository]: it holds exactly when an access token is stored.
// AwaitingRedirect only exists in memory while [AuthManager.BeginSignIn] waits on the [RedirectCapturer].
type AuthManager struct {
	mu             sync.Mutex
	state          models.AuthState
	revoked        bool
	config         *oauth2.Config
	store          CredentialRepository
	capturer       RedirectCapturer
	callbackScheme string
	httpClient     *http.Client
	now            func() time.Time
	logger         *log.Logger
}

// AuthOption customizes an [AuthManager].
type AuthOption func(*AuthManager)

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(c *http.Client) AuthOption {
	return func(a *AuthManager) { a.httpClient = c }
}

// WithClock replaces time.Now when computing the credential expiry.
func WithClock(now func() time.Time) AuthOption {
	return func(a *AuthManager) { a.now = now }
}

// WithCapturer sets the redirect capture used by [AuthManager.BeginSignIn].
func WithCapturer(c RedirectCapturer) AuthOption {
	return func(a *AuthManager) { a.capturer = c }
}

// NewAuthManager creates an [AuthManager] and derives its initial state from store.
func NewAuthManager(ctx context.Context, cfg shared.SpotifyConfig, store CredentialRepository, logger *log.Logger, opts ...AuthOption) (*AuthManager, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	scheme := "http"
	if u, err := url.Parse(cfg.RedirectURI); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}

	a := &AuthManager{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:          store,
		callbackScheme: scheme,
		now:            time.Now,
		logger:         logger,
	}
	if a.logger == nil {
		a.logger = shared.NewDiscardLogger()
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.refreshState(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// State returns the current sign-in state.
func (a *AuthManager) State() models.AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// CallbackScheme is the URI scheme of the registered redirect.
func (a *AuthManager) CallbackScheme() string { return a.callbackScheme }

// refreshState re-derives the state from the store.
func (a *AuthManager) refreshState(ctx context.Context) error {
	c, err := a.store.Get(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = models.SignedOut
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if c != nil && !a.revoked {
		a.state = models.SignedIn
	} else {
		a.state = models.SignedOut
	}
	return nil
}

func (a *AuthManager) setState(s models.AuthState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// AuthorizationURL builds the provider authorization URL.
//
// The consent dialog is always forced. state is only included when non-empty, so AuthorizationURL("") is deterministic.
func (a *AuthManager) AuthorizationURL(state string) (string, error) {
	u, err := url.Parse(a.config.Endpoint.AuthURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: invalid authorization url %q", shared.ErrConfiguration, a.config.Endpoint.AuthURL)
	}
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true")), nil
}

// BeginSignIn presents the authorization page and returns the code from the redirect.
//
// Cancellation, capture errors and a mismatched state all report [shared.ErrAuthenticationCancelled].
func (a *AuthManager) BeginSignIn(ctx context.Context) (string, error) {
	if a.capturer == nil {
		return "", fmt.Errorf("%w: no redirect capturer configured", shared.ErrConfiguration)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}
	authURL, err := a.AuthorizationURL(state)
	if err != nil {
		return "", err
	}

	a.setState(models.AwaitingRedirect)
	a.logger.Debug("awaiting authorization redirect", "scheme", a.callbackScheme)

	res, err := a.capturer.Capture(ctx, authURL, a.callbackScheme)

	var reason error
	switch {
	case err != nil:
		reason = err
	case res.Err != nil:
		reason = res.Err
	case res.Cancelled:
		reason = errors.New("cancelled by user")
	case res.Code == "":
		reason = errors.New("redirect carried no code")
	case res.State != state:
		reason = errors.New("state mismatch")
	}

	if reason != nil {
		a.restoreState(ctx)
		a.logger.Info("sign-in cancelled", "reason", reason)
		return "", fmt.Errorf("%w: %v", shared.ErrAuthenticationCancelled, reason)
	}
	return res.Code, nil
}

// restoreState re-derives the state after a failed attempt, falling back to SignedOut.
func (a *AuthManager) restoreState(ctx context.Context) {
	if err := a.refreshState(ctx); err != nil {
		a.logger.Warn("failed to re-read credential", "error", err)
	}
}

// CompleteSignIn exchanges code for a credential and stores it.
//
// Every exchange failure is a [*shared.TokenExchangeError]; StatusCode is set when the token endpoint answered.
func (a *AuthManager) CompleteSignIn(ctx context.Context, code string) error {
	if code == "" {
		a.restoreState(ctx)
		return &shared.TokenExchangeError{Err: fmt.Errorf("%w: empty authorization code", shared.ErrInvalidInput)}
	}

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		a.restoreState(ctx)
		exErr := &shared.TokenExchangeError{Err: err}

		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			exErr.StatusCode = re.Response.StatusCode
			if re.ErrorCode != "" {
				exErr.Err = fmt.Errorf("%s: %s", re.ErrorCode, re.ErrorDescription)
			}
		}

		a.logger.Warn("token exchange failed", "status", exErr.StatusCode, "error", exErr.Err)
		return exErr
	}

	c := &models.Credential{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if d, ok := expiresIn(tok); ok {
		c.ExpiresAt = a.now().Add(d)
	} else if !tok.Expiry.IsZero() {
		c.ExpiresAt = tok.Expiry
	}

	if err := a.store.Set(ctx, c); err != nil {
		a.restoreState(ctx)
		return fmt.Errorf("failed to store credential: %w", err)
	}

	a.mu.Lock()
	a.state = models.SignedIn
	a.revoked = false
	a.mu.Unlock()
	a.logger.Info("signed in", "expires_at", c.ExpiresAt.Format(time.RFC3339))
	return nil
}

// expiresIn reads the raw expires_in field of the token response.
func expiresIn(tok *oauth2.Token) (time.Duration, bool) {
	var secs float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		secs = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		secs = f
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// SignIn runs [AuthManager.BeginSignIn] followed by [AuthManager.CompleteSignIn].
func (a *AuthManager) SignIn(ctx context.Context) error {
	code, err := a.BeginSignIn(ctx)
	if err != nil {
		return err
	}
	return a.CompleteSignIn(ctx, code)
}

// AccessToken returns the stored access token or [shared.ErrNotAuthenticated].
//
// Expiry is not checked here; the Web API reports an expired token with a 401.
// After a sign-out the token stays unavailable even if the store could not be cleared.
func (a *AuthManager) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	revoked := a.revoked
	a.mu.Unlock()
	if revoked {
		return "", shared.ErrNotAuthenticated
	}

	c, err := a.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if c == nil || c.AccessToken == "" {
		a.setState(models.SignedOut)
		return "", shared.ErrNotAuthenticated
	}
	return c.AccessToken, nil
}

// Credential returns the stored credential, or nil when signed out.
func (a *AuthManager) Credential(ctx context.Context) (*models.Credential, error) {
	return a.store.Get(ctx)
}

// InvalidateSession clears the credential after the API rejected it.
func (a *AuthManager) InvalidateSession(ctx context.Context) {
	a.clear(ctx)
	a.logger.Info("session expired, credentials cleared")
}

// SignOut clears the credential. It is idempotent and never fails.
func (a *AuthManager) SignOut(ctx context.Context) {
	a.clear(ctx)
	a.logger.Info("signed out")
}

func (a *AuthManager) clear(ctx context.Context) {
	if err := a.store.Set(ctx, nil); err != nil {
		a.logger.Warn("failed to clear credential", "error", err)
	}

	a.mu.Lock()
	a.state = models.SignedOut
	a.revoked = true
	a.mu.Unlock()
}
