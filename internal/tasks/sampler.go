package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
)

// MoodSample is the first page of results for one mood.
type MoodSample struct {
	Mood  models.Mood
	Page  *models.ResultPage
	Error error
}

// SampleOpts configures [SampleMoods].
type SampleOpts struct {
	PageSize   int // Results per mood (default: 5)
	NumWorkers int // Concurrent workers (default: 3, max: 8)
}

// SampleMoods fetches the first page of every mood with a bounded worker pool.
//
// Results keep the order of moods. Pacing is left to the fetcher. A failure for one mood is recorded in its
// sample and does not stop the others, except that a sign-in error is returned once every worker has finished.
func SampleMoods(ctx context.Context, fetcher PageFetcher, moods []models.Mood, opts SampleOpts, progress chan<- ProgressUpdate) ([]MoodSample, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher not initialized", shared.ErrServiceUnavailable)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	samples := make([]MoodSample, len(moods))
	jobs := make(chan int, len(moods))
	for i := range moods {
		jobs <- i
	}
	close(jobs)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		failed    int
	)

	for w := 0; w < opts.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				mood := moods[i]
				sample := MoodSample{Mood: mood}

				if err := ctx.Err(); err != nil {
					sample.Error = err
				} else {
					sample.Page, sample.Error = fetcher.FetchPage(ctx, mood.Query(opts.PageSize), 0)
				}
				samples[i] = sample

				mu.Lock()
				completed++
				if sample.Error != nil {
					failed++
				}
				update := sampledUpdate(completed, len(moods), mood.Name, sample.Error)
				mu.Unlock()

				sendProgress(progress, update)
			}
		}()
	}

	wg.Wait()
	sendProgress(progress, sampleDoneUpdate(len(moods), failed))

	for _, s := range samples {
		if shared.IsSignInRequired(s.Error) {
			return samples, s.Error
		}
	}
	return samples, nil
}
