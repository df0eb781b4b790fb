package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/repositories"
	"github.com/desertthunder/moodify/internal/shared"
	tu "github.com/desertthunder/moodify/internal/testing"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// fakeCapturer echoes the state from the authorization URL unless told otherwise.
type fakeCapturer struct {
	code      string
	state     string
	cancelled bool
	resErr    error
	err       error
	onCapture func(authURL string)
	gotScheme string
}

func (f *fakeCapturer) Capture(_ context.Context, authURL, scheme string) (RedirectResult, error) {
	f.gotScheme = scheme
	if f.onCapture != nil {
		f.onCapture(authURL)
	}
	if f.err != nil {
		return RedirectResult{}, f.err
	}

	state := f.state
	if state == "" {
		u, _ := url.Parse(authURL)
		state = u.Query().Get("state")
	}
	return RedirectResult{Code: f.code, State: state, Cancelled: f.cancelled, Err: f.resErr}, nil
}

func testSpotifyConfig(tokenURL string) shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:3000/callback",
		AuthURL:      "https://accounts.spotify.com/authorize",
		TokenURL:     tokenURL,
	}
}

func newTestAuth(t *testing.T, tokenURL string, kv repositories.KVStore, opts ...AuthOption) *AuthManager {
	t.Helper()
	if kv == nil {
		kv = tu.NewMemoryKVStore()
	}
	opts = append([]AuthOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	a, err := NewAuthManager(context.Background(), testSpotifyConfig(tokenURL), repositories.NewCredentialStore(kv), shared.NewDiscardLogger(), opts...)
	if err != nil {
		t.Fatalf("NewAuthManager() error = %v", err)
	}
	return a
}

// tokenServer answers the authorization-code grant for "validcode" and rejects everything else.
func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}

		for field, want := range map[string]string{
			"grant_type":    "authorization_code",
			"redirect_uri":  "http://127.0.0.1:3000/callback",
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		} {
			if got := r.PostForm.Get(field); got != want {
				t.Errorf("form field %s = %q, want %q", field, got, want)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "validcode" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "AT1",
			"expires_in":    3600,
			"refresh_token": "RT1",
			"scope":         "x",
			"token_type":    "Bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewAuthManager(t *testing.T) {
	t.Run("fresh install is signed out", func(t *testing.T) {
		a := newTestAuth(t, "", nil)

		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
		if _, err := a.AccessToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("stored credential is signed in", func(t *testing.T) {
		kv := tu.NewMemoryKVStore()
		_ = repositories.NewCredentialStore(kv).Set(context.Background(), &models.Credential{AccessToken: "AT0"})

		a := newTestAuth(t, "", kv)
		if a.State() != models.SignedIn {
			t.Errorf("expected SignedIn, got %v", a.State())
		}
		token, err := a.AccessToken(context.Background())
		if err != nil || token != "AT0" {
			t.Errorf("expected AT0, got %q (%v)", token, err)
		}
	})

	t.Run("missing client credentials", func(t *testing.T) {
		cfg := testSpotifyConfig("")
		cfg.ClientSecret = ""
		_, err := NewAuthManager(context.Background(), cfg, repositories.NewCredentialStore(tu.NewMemoryKVStore()), nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		kv := tu.NewMemoryKVStore()
		kv.GetErr = errors.New("disk gone")
		_, err := NewAuthManager(context.Background(), testSpotifyConfig(""), repositories.NewCredentialStore(kv), nil)
		if err == nil {
			t.Error("expected error when the store cannot be read")
		}
	})

	t.Run("callback scheme from redirect", func(t *testing.T) {
		a := newTestAuth(t, "", nil)
		if a.CallbackScheme() != "http" {
			t.Errorf("expected http, got %s", a.CallbackScheme())
		}
	})
}

func TestAuthorizationURL(t *testing.T) {
	a := newTestAuth(t, "", nil)

	t.Run("deterministic without state", func(t *testing.T) {
		first, err := a.AuthorizationURL("")
		if err != nil {
			t.Fatalf("AuthorizationURL() error = %v", err)
		}
		second, _ := a.AuthorizationURL("")
		if first != second {
			t.Errorf("expected identical URLs, got %s and %s", first, second)
		}

		u, _ := url.Parse(first)
		if u.Host != "accounts.spotify.com" || u.Path != "/authorize" {
			t.Errorf("unexpected endpoint %s", u)
		}

		q := u.Query()
		for key, want := range map[string]string{
			"response_type": "code",
			"client_id":     "test_client_id",
			"redirect_uri":  "http://127.0.0.1:3000/callback",
			"scope":         "playlist-read-private playlist-read-collaborative user-library-read",
			"show_dialog":   "true",
		} {
			if got := q.Get(key); got != want {
				t.Errorf("%s = %q, want %q", key, got, want)
			}
		}
		if q.Has("state") {
			t.Error("state should be omitted when empty")
		}
	})

	t.Run("includes state", func(t *testing.T) {
		got, _ := a.AuthorizationURL("abc123")
		if !strings.Contains(got, "state=abc123") {
			t.Errorf("expected state in %s", got)
		}
	})

	t.Run("invalid base url", func(t *testing.T) {
		cfg := testSpotifyConfig("")
		cfg.AuthURL = "://bad"
		bad, err := NewAuthManager(context.Background(), cfg, repositories.NewCredentialStore(tu.NewMemoryKVStore()), nil)
		if err != nil {
			t.Fatalf("NewAuthManager() error = %v", err)
		}
		if _, err := bad.AuthorizationURL(""); !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}

func TestCompleteSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code", func(t *testing.T) {
		srv := tokenServer(t)
		kv := tu.NewMemoryKVStore()
		a := newTestAuth(t, srv.URL, kv, WithHTTPClient(srv.Client()))

		if err := a.CompleteSignIn(ctx, "validcode"); err != nil {
			t.Fatalf("CompleteSignIn() error = %v", err)
		}

		if a.State() != models.SignedIn {
			t.Errorf("expected SignedIn, got %v", a.State())
		}

		token, err := a.AccessToken(ctx)
		if err != nil || token != "AT1" {
			t.Errorf("expected AT1, got %q (%v)", token, err)
		}

		c, _ := a.Credential(ctx)
		if c == nil || c.RefreshToken != "RT1" {
			t.Fatalf("expected stored refresh token, got %+v", c)
		}
		if want := fixedNow.Add(time.Hour); !c.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, c.ExpiresAt)
		}
	})

	t.Run("rejected code", func(t *testing.T) {
		srv := tokenServer(t)
		a := newTestAuth(t, srv.URL, nil, WithHTTPClient(srv.Client()))

		err := a.CompleteSignIn(ctx, "badcode")
		if !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Fatalf("expected ErrTokenExchangeFailed, got %v", err)
		}

		var exErr *shared.TokenExchangeError
		if !errors.As(err, &exErr) || exErr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400, got %+v", exErr)
		}
		if !strings.Contains(err.Error(), "invalid_grant") {
			t.Errorf("expected provider error code in %q", err.Error())
		}
		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
	})

	t.Run("undecodable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		a := newTestAuth(t, srv.URL, nil, WithHTTPClient(srv.Client()))
		if err := a.CompleteSignIn(ctx, "validcode"); !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
		}
	})

	t.Run("missing access token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"expires_in":3600,"token_type":"Bearer"}`))
		}))
		defer srv.Close()

		a := newTestAuth(t, srv.URL, nil, WithHTTPClient(srv.Client()))
		if err := a.CompleteSignIn(ctx, "validcode"); !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
		}
		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		a := newTestAuth(t, srv.URL, nil)
		err := a.CompleteSignIn(ctx, "validcode")

		var exErr *shared.TokenExchangeError
		if !errors.As(err, &exErr) {
			t.Fatalf("expected TokenExchangeError, got %v", err)
		}
		if exErr.StatusCode != 0 {
			t.Errorf("expected no status code, got %d", exErr.StatusCode)
		}
	})

	t.Run("empty code", func(t *testing.T) {
		a := newTestAuth(t, "", nil)
		if err := a.CompleteSignIn(ctx, ""); !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		srv := tokenServer(t)
		kv := tu.NewMemoryKVStore()
		a := newTestAuth(t, srv.URL, kv, WithHTTPClient(srv.Client()))
		kv.SetErr = errors.New("disk full")

		if err := a.CompleteSignIn(ctx, "validcode"); err == nil {
			t.Error("expected error when the credential cannot be stored")
		}
		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
	})
}

func TestBeginSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("returns code", func(t *testing.T) {
		var during models.AuthState
		capturer := &fakeCapturer{code: "validcode"}
		a := newTestAuth(t, "", nil, WithCapturer(capturer))
		capturer.onCapture = func(string) { during = a.State() }

		code, err := a.BeginSignIn(ctx)
		if err != nil {
			t.Fatalf("BeginSignIn() error = %v", err)
		}
		if code != "validcode" {
			t.Errorf("expected validcode, got %s", code)
		}
		if during != models.AwaitingRedirect {
			t.Errorf("expected AwaitingRedirect during capture, got %v", during)
		}
		if capturer.gotScheme != "http" {
			t.Errorf("expected http scheme, got %s", capturer.gotScheme)
		}
	})

	tc := []struct {
		name     string
		capturer *fakeCapturer
	}{
		{name: "cancelled", capturer: &fakeCapturer{cancelled: true}},
		{name: "provider error", capturer: &fakeCapturer{resErr: errors.New("access_denied")}},
		{name: "capture error", capturer: &fakeCapturer{err: errors.New("listener failed")}},
		{name: "state mismatch", capturer: &fakeCapturer{code: "validcode", state: "forged"}},
		{name: "empty code", capturer: &fakeCapturer{}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuth(t, "", nil, WithCapturer(tt.capturer))

			_, err := a.BeginSignIn(ctx)
			if !errors.Is(err, shared.ErrAuthenticationCancelled) {
				t.Errorf("expected ErrAuthenticationCancelled, got %v", err)
			}
			if a.State() != models.SignedOut {
				t.Errorf("expected SignedOut, got %v", a.State())
			}
		})
	}

	t.Run("no capturer", func(t *testing.T) {
		a := newTestAuth(t, "", nil)
		if _, err := a.BeginSignIn(ctx); !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("SignIn end to end", func(t *testing.T) {
		srv := tokenServer(t)
		a := newTestAuth(t, srv.URL, nil, WithHTTPClient(srv.Client()), WithCapturer(&fakeCapturer{code: "validcode"}))

		if err := a.SignIn(ctx); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		if a.State() != models.SignedIn {
			t.Errorf("expected SignedIn, got %v", a.State())
		}
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()

	signedIn := func(t *testing.T) (*AuthManager, *tu.MemoryKVStore) {
		kv := tu.NewMemoryKVStore()
		_ = repositories.NewCredentialStore(kv).Set(ctx, &models.Credential{AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: fixedNow})
		return newTestAuth(t, "", kv), kv
	}

	t.Run("clears credential", func(t *testing.T) {
		a, kv := signedIn(t)

		a.SignOut(ctx)
		a.SignOut(ctx)

		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
		if kv.Len() != 0 {
			t.Errorf("expected empty store, got %d keys", kv.Len())
		}
		if _, err := a.AccessToken(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("store failure still signs out", func(t *testing.T) {
		a, kv := signedIn(t)
		kv.SetErr = errors.New("read-only")

		a.SignOut(ctx)

		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
		if _, err := a.AccessToken(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("InvalidateSession", func(t *testing.T) {
		a, _ := signedIn(t)

		a.InvalidateSession(ctx)

		if a.State() != models.SignedOut {
			t.Errorf("expected SignedOut, got %v", a.State())
		}
		if _, err := a.AccessToken(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("sign in again after sign out", func(t *testing.T) {
		srv := tokenServer(t)
		kv := tu.NewMemoryKVStore()
		a := newTestAuth(t, srv.URL, kv, WithHTTPClient(srv.Client()))

		a.SignOut(ctx)
		if err := a.CompleteSignIn(ctx, "validcode"); err != nil {
			t.Fatalf("CompleteSignIn() error = %v", err)
		}
		if token, err := a.AccessToken(ctx); err != nil || token != "AT1" {
			t.Errorf("expected AT1, got %q (%v)", token, err)
		}
	})
}
