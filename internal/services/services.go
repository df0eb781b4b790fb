package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/moodify/internal/models"
)

// HTTPDoer sends an HTTP request. [*http.Client] satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RedirectResult is the outcome of presenting the authorization page.
//
// Exactly one of Code, Cancelled or Err is meaningful.
type RedirectResult struct {
	Code      string
	State     string
	Cancelled bool
	Err       error
}

// RedirectCapturer presents authURL to the user and waits for the provider to redirect back to callbackScheme.
type RedirectCapturer interface {
	Capture(ctx context.Context, authURL, callbackScheme string) (RedirectResult, error)
}

// CredentialRepository persists the signed-in credential. A nil credential means signed out.
type CredentialRepository interface {
	Get(ctx context.Context) (*models.Credential, error)
	Set(ctx context.Context, c *models.Credential) error
}

// TokenProvider hands out the current bearer token and is told when the API rejects it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	InvalidateSession(ctx context.Context)
}
