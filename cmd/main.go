package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/moodify/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "moodify",
		Usage:    "Find Spotify playlists that match your mood",
		Version:  "0.3.0",
		Flags:    globalFlags(),
		Before:   runner.Configure,
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to release resources", "error", cerr)
	}

	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAuthenticationCancelled):
			logger.Warn("sign-in cancelled")
			os.Exit(1)
		case shared.IsSignInRequired(err):
			logger.Error("not signed in, run 'moodify auth login'", "error", err)
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
