package tasks

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
)

// PageFetcher fetches one page of results. services.PlaylistSearcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, q models.SearchQuery, offset int) (*models.ResultPage, error)
}

// SignInChecker is implemented by fetchers that can report a missing credential without sending a request.
type SignInChecker interface {
	CheckSignIn(ctx context.Context) error
}

// State is the lifecycle state of a [QuerySession].
type State int

const (
	Idle State = iota
	Loading
	LoadingMore
	Loaded
	Failed
	RequiresSignIn
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case LoadingMore:
		return "loading_more"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	case RequiresSignIn:
		return "requires_sign_in"
	default:
		return "unknown"
	}
}

// View is an immutable snapshot of a [QuerySession].
//
// Version increases by one on every published transition. Err explains Failed and RequiresSignIn;
// Notice carries a transient load-more failure while State is Loaded.
type View struct {
	Version uint64
	State   State
	Query   models.SearchQuery
	Items   []models.PlaylistSummary
	HasMore bool
	Err     error
	Notice  error
}

// Count returns the number of accumulated items.
func (v View) Count() int { return len(v.Items) }

// QuerySession owns the pagination state of the active query.
//
// A generation counter is bumped on every [QuerySession.SetQuery]; a fetch that completes under an older
// generation is discarded. In-flight requests are never aborted.
type QuerySession struct {
	fetcher PageFetcher
	logger  *log.Logger

	mu          sync.Mutex
	state       State
	query       models.SearchQuery
	hasQuery    bool
	accumulated []models.PlaylistSummary
	seen        map[string]struct{}
	nextOffset  int
	hasMore     bool
	generation  uint64
	version     uint64
	err         error
	notice      error
	subs        map[int]chan View
	nextSub     int
}

// NewQuerySession creates an idle [QuerySession].
func NewQuerySession(fetcher PageFetcher, logger *log.Logger) *QuerySession {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &QuerySession{
		fetcher: fetcher,
		logger:  logger,
		seen:    make(map[string]struct{}),
		subs:    make(map[int]chan View),
	}
}

// SetQuery resets pagination and fetches the first page of q.
//
// It blocks until the fetch completes. A result superseded by a newer SetQuery is dropped and nil is returned.
// Sign-in errors move the session to RequiresSignIn, other errors to Failed; both are also returned.
// When the fetcher is a [SignInChecker] and reports no credential, the session moves straight to
// RequiresSignIn without fetching.
func (s *QuerySession) SetQuery(ctx context.Context, q models.SearchQuery) error {
	var signInErr error
	if checker, ok := s.fetcher.(SignInChecker); ok {
		if err := checker.CheckSignIn(ctx); shared.IsSignInRequired(err) {
			signInErr = err
		}
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.query = q
	s.hasQuery = true
	s.accumulated = nil
	s.seen = make(map[string]struct{})
	s.nextOffset = 0
	s.hasMore = true
	s.err = nil
	s.notice = nil

	if signInErr != nil {
		s.hasMore = false
		s.err = signInErr
		s.state = RequiresSignIn
		s.publishLocked()
		s.mu.Unlock()
		s.logger.Info("sign-in required", "reason", signInErr)
		return signInErr
	}

	s.state = Loading
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Debug("query set", "query", q.Text(), "generation", gen)
	page, err := s.fetcher.FetchPage(ctx, q, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding stale page", "generation", gen, "current", s.generation)
		return nil
	}

	if err != nil {
		s.err = err
		s.hasMore = false
		if shared.IsSignInRequired(err) {
			s.state = RequiresSignIn
			s.logger.Info("sign-in required", "reason", err)
		} else {
			s.state = Failed
			s.logger.Warn("search failed", "query", q.Text(), "error", err)
		}
		s.publishLocked()
		return err
	}

	s.mergeLocked(page)
	s.state = Loaded
	s.publishLocked()
	return nil
}

// LoadMore fetches the next page of the current query.
//
// It is a no-op unless the session is Loaded with more results available. Accumulated items stay visible
// while the page loads. On failure the session returns to Loaded with a Notice and stops paginating.
func (s *QuerySession) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasQuery || s.state != Loaded || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	q := s.query
	offset := s.nextOffset
	s.notice = nil
	s.state = LoadingMore
	s.publishLocked()
	s.mu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, q, offset)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding stale page", "generation", gen, "current", s.generation, "offset", offset)
		return nil
	}

	if err != nil {
		s.state = Loaded
		s.hasMore = false
		s.notice = err
		s.logger.Warn("load more failed", "offset", offset, "error", err)
		s.publishLocked()
		return err
	}

	s.mergeLocked(page)
	s.state = Loaded
	s.publishLocked()
	return nil
}

// mergeLocked appends unseen items in order and advances the offset.
func (s *QuerySession) mergeLocked(page *models.ResultPage) {
	added := 0
	for _, item := range page.Items {
		if _, dup := s.seen[item.ID]; dup {
			continue
		}
		s.seen[item.ID] = struct{}{}
		s.accumulated = append(s.accumulated, item)
		added++
	}
	s.nextOffset = page.Offset + s.query.PageSize
	s.hasMore = !page.IsLastPage
	s.logger.Debug("merged page", "offset", page.Offset, "added", added, "total", len(s.accumulated), "has_more", s.hasMore)
}

// Filter returns the accumulated items whose name contains substr, ignoring case, in their original order.
func (s *QuerySession) Filter(substr string) []models.PlaylistSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterByName(s.accumulated, substr)
}

// FilterByName returns the items whose name contains substr, ignoring case. An empty substr returns a copy of items.
func FilterByName(items []models.PlaylistSummary, substr string) []models.PlaylistSummary {
	needle := strings.ToLower(substr)
	out := make([]models.PlaylistSummary, 0, len(items))
	for _, item := range items {
		if needle == "" || strings.Contains(strings.ToLower(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out
}

// View returns the current snapshot.
func (s *QuerySession) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// DismissNotice clears a load-more failure notice.
func (s *QuerySession) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return
	}
	s.notice = nil
	s.publishLocked()
}

// Subscribe returns a channel that always holds the latest snapshot, starting with the current one.
//
// Slow readers skip intermediate snapshots. The returned func unsubscribes and closes the channel.
func (s *QuerySession) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan View, 1)
	ch <- s.snapshotLocked()
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *QuerySession) snapshotLocked() View {
	items := make([]models.PlaylistSummary, len(s.accumulated))
	copy(items, s.accumulated)
	return View{
		Version: s.version,
		State:   s.state,
		Query:   s.query,
		Items:   items,
		HasMore: s.hasMore,
		Err:     s.err,
		Notice:  s.notice,
	}
}

// publishLocked bumps the version and replaces whatever snapshot each subscriber has not read yet.
func (s *QuerySession) publishLocked() {
	s.version++
	v := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
