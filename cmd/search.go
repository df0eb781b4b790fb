package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/moodify/internal/formatter"
	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
	"github.com/desertthunder/moodify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// resolveQuery treats a single argument naming a mood as that mood's terms, anything else as free text.
func resolveQuery(args []string, pageSize int) (models.SearchQuery, string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return models.SearchQuery{}, "", fmt.Errorf("%w: a mood or search text", shared.ErrMissingArgument)
	}

	if len(args) == 1 {
		if mood, err := models.ParseMood(args[0]); err == nil {
			return mood.Query(pageSize), fmt.Sprintf("%s %s", mood.Emoji, mood.Title()), nil
		}
	}
	q := models.NewSearchQuery(text, pageSize)
	return q, q.Text(), nil
}

// Search runs a playlist search and prints or exports the accumulated results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	q, title, err := resolveQuery(cmd.Args().Slice(), r.config.Search.PageSize)
	if err != nil {
		return err
	}

	pages := int(cmd.Int("pages"))
	if pages < 1 {
		return fmt.Errorf("%w: --pages must be at least 1", shared.ErrInvalidArgument)
	}

	searcher, err := r.playlistSearcher(ctx)
	if err != nil {
		return err
	}

	session := tasks.NewQuerySession(searcher, r.logger)
	r.logger.Info("searching playlists", "query", q.Text(), "pages", pages)

	if err := session.SetQuery(ctx, q); err != nil {
		if shared.IsSignInRequired(err) {
			return fmt.Errorf("%w: run 'moodify auth login' first", err)
		}
		return err
	}

	loaded := 1
	for loaded < pages && session.View().HasMore {
		if err := session.LoadMore(ctx); err != nil {
			r.logger.Warn("stopped loading more results", "page", loaded+1, "error", err)
			break
		}
		loaded++
	}

	view := session.View()
	results := session.Filter(cmd.String("filter"))
	r.recordSearch(ctx, view, loaded)

	if output := cmd.String("output"); output != "" {
		if err := formatter.WriteExport(output, format, title, results); err != nil {
			return err
		}
		r.writePlain("✓ Wrote %d playlists to %s\n", len(results), output)
	} else {
		data, err := formatter.Export(format, title, results)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if view.HasMore && format == formatter.FormatText && cmd.String("output") == "" {
		r.writePlainln("More results available, use --pages %d to load them.", loaded+1)
	}

	if n := int(cmd.Int("open")); n != 0 {
		return r.openResult(results, n)
	}
	return nil
}

func (r *Runner) openResult(results []models.PlaylistSummary, n int) error {
	if n < 1 || n > len(results) {
		return fmt.Errorf("%w: --open must be between 1 and %d", shared.ErrInvalidArgument, len(results))
	}
	target := results[n-1]
	if target.ExternalURL == "" {
		return fmt.Errorf("%w: %q has no link", shared.ErrInvalidArgument, target.Name)
	}

	r.logger.Debug("opening playlist", "id", target.ID, "url", target.ExternalURL)
	if err := r.openBrowser(target.ExternalURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		return r.writePlain("Open this playlist in your browser:\n%s\n", target.ExternalURL)
	}
	return nil
}

// recordSearch stores the completed query in search history. Failures are logged only.
func (r *Runner) recordSearch(ctx context.Context, view tasks.View, pages int) {
	history, err := r.searchHistory()
	if err != nil {
		r.logger.Warn("search history unavailable", "error", err)
		return
	}

	rec := &models.SearchRecord{Query: view.Query.Text(), Pages: pages, Results: view.Count()}
	if err := history.Record(ctx, rec); err != nil {
		r.logger.Warn("failed to record search", "error", err)
	}
}

// Moods lists the mood catalogue, optionally sampling a few playlists for each.
func (r *Runner) Moods(ctx context.Context, cmd *cli.Command) error {
	moods := models.Moods()
	preview := int(cmd.Int("preview"))

	if preview <= 0 {
		r.writePlainHeader("Moods")
		for _, m := range moods {
			r.writePlain("%s %-12s %s\n", m.Emoji, m.Name, strings.Join(m.Terms, ", "))
		}
		return nil
	}

	searcher, err := r.playlistSearcher(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, len(moods)+1)
	samples, err := tasks.SampleMoods(ctx, searcher, moods, tasks.SampleOpts{
		PageSize:   preview,
		NumWorkers: int(cmd.Int("workers")),
	}, progress)
	close(progress)
	for update := range progress {
		r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
	}
	if err != nil {
		if shared.IsSignInRequired(err) {
			return fmt.Errorf("%w: run 'moodify auth login' first", err)
		}
		return err
	}

	for _, s := range samples {
		r.writePlainln("%s %s", s.Mood.Emoji, s.Mood.Title())
		switch {
		case s.Error != nil:
			r.writePlain("  ✗ %v\n", s.Error)
		case s.Page == nil || len(s.Page.Items) == 0:
			r.writePlain("  (no playlists)\n")
		default:
			for i, p := range s.Page.Items {
				r.writePlain("  %d. %s\n", i+1, p.Name)
			}
		}
	}
	return nil
}

// History lists recent searches or clears them.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	history, err := r.searchHistory()
	if err != nil {
		return err
	}

	if cmd.Bool("clear") {
		n, err := history.Clear(ctx)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Cleared %d searches\n", n)
	}

	records, err := history.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}

	if len(records) == 0 {
		return r.writePlain("No searches yet.\n")
	}

	r.writePlainHeader("Recent searches")
	for _, rec := range records {
		r.writePlain("%s  %-40s %3d results (%d pages)\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.Query, rec.Results, rec.Pages)
	}
	return nil
}
