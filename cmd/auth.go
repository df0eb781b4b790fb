package main

import (
	"context"
	"time"

	"github.com/desertthunder/moodify/internal/models"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with Spotify through the loopback redirect.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.authManager(ctx)
	if err != nil {
		return err
	}

	if auth.State() == models.SignedIn && !cmd.Bool("force") {
		return r.writePlain("Already signed in. Use --force to sign in again.\n")
	}

	r.logger.Info("starting Spotify sign-in", "redirect_uri", r.config.RedirectURI())
	r.writePlain("Opening your browser to sign in to Spotify...\n")

	if err := auth.SignIn(ctx); err != nil {
		return err
	}

	r.logger.Info("authentication successful")
	r.writePlain("✓ Signed in to Spotify\n")

	if cred, err := auth.Credential(ctx); err == nil && cred != nil && !cred.ExpiresAt.IsZero() {
		r.writePlain("Session expires: %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthLogout forgets the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.authManager(ctx)
	if err != nil {
		return err
	}

	auth.SignOut(ctx)
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the sign-in state and the stored credential's expiry.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.authManager(ctx)
	if err != nil {
		return err
	}

	state := auth.State()
	if state != models.SignedIn {
		return r.writePlain("Authentication: ✗ %s\nRun 'moodify auth login' to sign in.\n", state)
	}

	r.writePlain("Authentication: ✓ %s\n", state)
	r.writePlain("Storage: %s\n", r.config.Storage.Backend)

	cred, err := auth.Credential(ctx)
	if err != nil {
		return err
	}
	switch {
	case cred == nil || cred.ExpiresAt.IsZero():
		r.writePlain("Expires: unknown\n")
	case cred.Expired(time.Now()):
		r.writePlain("Expires: expired at %s (sign in again if searches fail)\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	default:
		r.writePlain("Expires: %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
