package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodify/internal/shared"
	"github.com/desertthunder/moodify/internal/tasks"
	"github.com/desertthunder/moodify/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive mood browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/moodify-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)
	r.captureOut = io.Discard

	searcher, err := r.playlistSearcher(ctx)
	if err != nil {
		return err
	}
	auth, err := r.authManager(ctx)
	if err != nil {
		return err
	}

	opts := ui.Options{
		PageSize: r.config.Search.PageSize,
		Opener:   r.openBrowser,
		Logger:   fileLogger,
	}
	if history, err := r.searchHistory(); err == nil {
		opts.History = history
	} else {
		fileLogger.Warn("search history unavailable", "error", err)
	}

	session := tasks.NewQuerySession(searcher, fileLogger)
	model := ui.NewModel(ctx, auth, session, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
