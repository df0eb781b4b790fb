package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
	"github.com/desertthunder/moodify/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MoodView ViewState = iota
	ResultsView
	SignInView
	ErrorView
)

// Authenticator is the part of services.AuthManager the TUI drives.
type Authenticator interface {
	State() models.AuthState
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context)
}

// HistoryRecorder stores completed searches. repositories.SearchHistoryRepository implements it.
type HistoryRecorder interface {
	Record(ctx context.Context, rec *models.SearchRecord) error
}

// Options configures a [Model].
type Options struct {
	PageSize int                    // Results per request (default: 50)
	Moods    []models.Mood          // Moods shown in the picker (default: [models.Moods])
	Opener   func(url string) error // Opens a playlist link (default: [shared.OpenBrowser])
	History  HistoryRecorder        // Optional search history
	Logger   *log.Logger            // Optional logger; must not write to the terminal
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	auth        Authenticator
	session     *tasks.QuerySession
	snapshots   <-chan tasks.View
	unsubscribe func()
	snapshot    tasks.View
	mood        *models.Mood
	moodList    list.Model
	resultList  list.Model
	filter      textinput.Model
	filtering   bool
	pages       int
	signingIn   bool
	status      string
	err         error
	width       int
	height      int
	opts        Options
	logger      *log.Logger
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// The model subscribes to session immediately; call [Model.Close] after the program exits.
func NewModel(ctx context.Context, auth Authenticator, session *tasks.QuerySession, opts Options) *Model {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if len(opts.Moods) == 0 {
		opts.Moods = models.Moods()
	}
	if opts.Opener == nil {
		opts.Opener = shared.OpenBrowser
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}

	filter := textinput.New()
	filter.Placeholder = "filter by name"
	filter.Prompt = "/ "
	filter.CharLimit = 64

	snapshots, unsubscribe := session.Subscribe()

	return &Model{
		ctx:         ctx,
		view:        MoodView,
		auth:        auth,
		session:     session,
		snapshots:   snapshots,
		unsubscribe: unsubscribe,
		snapshot:    session.View(),
		moodList:    newList(moodItems(opts.Moods), "How are you feeling?"),
		resultList:  newList(nil, "Playlists"),
		filter:      filter,
		opts:        opts,
		logger:      logger,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Close stops receiving session snapshots.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// View state accessors, used by the CLI and tests.
func (m *Model) State() ViewState     { return m.view }
func (m *Model) Snapshot() tasks.View { return m.snapshot }
func (m *Model) Visible() []list.Item { return m.resultList.Items() }
func (m *Model) Status() string       { return m.status }
func (m *Model) Mood() *models.Mood   { return m.mood }
func (m *Model) Filtering() bool      { return m.filtering }
func (m *Model) FilterValue() string  { return m.filter.Value() }
func (m *Model) SigningIn() bool      { return m.signingIn }
func (m *Model) Err() error           { return m.err }

// Init starts listening for session snapshots.
func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.moodList.SetSize(msg.Width-4, msg.Height-6)
		m.resultList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case MoodView:
			return m.handleMoodKeys(msg)
		case ResultsView:
			return m.handleResultKeys(msg)
		case SignInView:
			return m.handleSignInKeys(msg)
		case ErrorView:
			return m.handleErrorKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshot:
		m.applySnapshot(msg.data.(tasks.View))
		return m, tea.Batch(m.waitForSnapshot(), m.autoLoadMore())

	case MsgQueryDone:
		if err := msg.err(); err != nil {
			m.logger.Debug("query finished with error", "error", err)
			return m, nil
		}
		m.pages = 1
		return m, m.recordHistory()

	case MsgLoadMoreDone:
		if msg.err() == nil {
			m.pages++
		}
		return m, nil

	case MsgSignInDone:
		m.signingIn = false
		err := msg.err()
		switch {
		case err == nil:
			m.status = "Signed in"
			m.err = nil
			if m.mood != nil {
				m.view = ResultsView
				return m, m.runQuery()
			}
			m.view = MoodView
		case errors.Is(err, shared.ErrAuthenticationCancelled):
			m.status = "Sign-in cancelled"
		default:
			m.err = err
		}
		return m, nil

	case MsgOpened:
		if err := msg.err(); err != nil {
			m.status = fmt.Sprintf("Could not open browser: %v", err)
		}
		return m, nil

	case MsgHistoryRecorded:
		if err := msg.err(); err != nil {
			m.logger.Warn("failed to record search history", "error", err)
		}
		return m, nil
	}
	return m, nil
}

// applySnapshot replaces the visible results with the latest session view and routes to the matching screen.
func (m *Model) applySnapshot(v tasks.View) {
	if v.Version < m.snapshot.Version {
		return
	}
	m.snapshot = v

	switch v.State {
	case tasks.RequiresSignIn:
		if m.view != MoodView {
			m.view = SignInView
		}
	case tasks.Failed:
		if m.view == ResultsView {
			m.view = ErrorView
			m.err = v.Err
		}
	case tasks.Loaded:
		if m.view == ResultsView && shared.IsSignInRequired(v.Notice) {
			m.view = SignInView
		}
	}

	m.refreshResults()
}

func (m *Model) refreshResults() {
	visible := tasks.FilterByName(m.snapshot.Items, m.filter.Value())
	index := m.resultList.Index()
	m.resultList.SetItems(playlistItems(visible))
	if index < len(visible) {
		m.resultList.Select(index)
	}
}

func (m *Model) handleMoodKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.signOut):
		return m.signOut()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.moodList.SelectedItem().(moodItem); ok {
			return m.selectMood(item.mood)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.moodList, cmd = m.moodList.Update(msg)
	return m, cmd
}

func (m *Model) selectMood(mood models.Mood) (tea.Model, tea.Cmd) {
	m.mood = &mood
	m.view = ResultsView
	m.status = ""
	m.err = nil
	m.pages = 0
	m.filter.SetValue("")
	m.resultList.Title = fmt.Sprintf("%s %s playlists", mood.Emoji, mood.Title())
	m.resultList.ResetSelected()
	return m, m.runQuery()
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.refreshResults()
			return m, nil
		}
		m.view = MoodView
		return m, nil
	case key.Matches(msg, m.keys.filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.loadMore):
		return m, m.loadMore()
	case key.Matches(msg, m.keys.dismiss):
		m.session.DismissNotice()
		return m, nil
	case key.Matches(msg, m.keys.signOut):
		return m.signOut()
	case key.Matches(msg, m.keys.retry):
		return m, m.runQuery()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.resultList.SelectedItem().(playlistItem); ok && item.playlist.ExternalURL != "" {
			return m, m.openPlaylist(item.playlist.ExternalURL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, tea.Batch(cmd, m.autoLoadMore())
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.refreshResults()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refreshResults()
	return m, cmd
}

func (m *Model) handleSignInKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MoodView
		return m, nil
	case key.Matches(msg, m.keys.signIn):
		if m.signingIn {
			return m, nil
		}
		m.signingIn = true
		m.err = nil
		m.status = "Waiting for authorization in your browser..."
		return m, m.signIn()
	}
	return m, nil
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MoodView
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.retry):
		m.view = ResultsView
		m.err = nil
		return m, m.runQuery()
	}
	return m, nil
}

func (m *Model) signOut() (tea.Model, tea.Cmd) {
	m.auth.SignOut(m.ctx)
	m.status = "Signed out"
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MoodView:
		m.moodList, cmd = m.moodList.Update(msg)
	case ResultsView:
		if m.filtering {
			m.filter, cmd = m.filter.Update(msg)
		} else {
			m.resultList, cmd = m.resultList.Update(msg)
		}
	}
	return m, cmd
}

// autoLoadMore requests the next page once the cursor sits on the last unfiltered result.
func (m *Model) autoLoadMore() tea.Cmd {
	if m.view != ResultsView || m.filter.Value() != "" {
		return nil
	}
	n := len(m.resultList.Items())
	if n == 0 || m.resultList.Index() != n-1 {
		return nil
	}
	return m.loadMore()
}

func (m *Model) loadMore() tea.Cmd {
	if m.snapshot.State != tasks.Loaded || !m.snapshot.HasMore {
		return nil
	}
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return loadMoreDoneMsg(session.LoadMore(ctx))
	}
}

func (m *Model) runQuery() tea.Cmd {
	if m.mood == nil {
		return nil
	}
	ctx, session, q := m.ctx, m.session, m.mood.Query(m.opts.PageSize)
	return func() tea.Msg {
		return queryDoneMsg(session.SetQuery(ctx, q))
	}
}

func (m *Model) signIn() tea.Cmd {
	ctx, auth := m.ctx, m.auth
	return func() tea.Msg {
		return signInDoneMsg(auth.SignIn(ctx))
	}
}

func (m *Model) openPlaylist(url string) tea.Cmd {
	opener := m.opts.Opener
	return func() tea.Msg {
		return openedMsg(opener(url))
	}
}

func (m *Model) recordHistory() tea.Cmd {
	if m.opts.History == nil {
		return nil
	}
	ctx, history := m.ctx, m.opts.History
	v := m.session.View()
	rec := &models.SearchRecord{
		Query:   v.Query.Text(),
		Pages:   m.pages,
		Results: v.Count(),
	}
	return func() tea.Msg {
		return historyRecordedMsg(history.Record(ctx, rec))
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(v)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case MoodView:
		body = m.renderMoods()
	case ResultsView:
		body = m.renderResults()
	case SignInView:
		body = m.renderSignIn()
	case ErrorView:
		body = m.renderError()
	}

	if m.status != "" {
		body = fmt.Sprintf("%s\n%s", body, styles.help.Render(m.status))
	}
	return body
}

func (m *Model) header() string {
	state := m.auth.State()
	badge := styles.badge.Render(state.String())
	return lipgloss.JoinHorizontal(lipgloss.Center, styles.accent.Render("moodify"), " ", badge)
}

func (m *Model) renderMoods() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.signOut, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.header(), m.moodList.View(), helpView)
}

func (m *Model) renderResults() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch m.snapshot.State {
	case tasks.Loading:
		b.WriteString(styles.title.Render("Searching..."))
		return b.String()
	case tasks.Loaded, tasks.LoadingMore:
		if m.snapshot.Count() == 0 {
			b.WriteString(styles.warn.Render("No playlists found for this mood."))
			b.WriteString("\n\n")
			b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.retry, m.keys.quit}))
			return b.String()
		}
	}

	b.WriteString(m.resultList.View())
	b.WriteString("\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	b.WriteString(styles.ok.Render(m.countLine()))
	b.WriteString("\n")

	if m.snapshot.Notice != nil {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Could not load more: %v", m.snapshot.Notice)))
		b.WriteString("\n")
	}

	keys := []key.Binding{m.keys.open, m.keys.filter, m.keys.back}
	if m.snapshot.HasMore {
		keys = append(keys, m.keys.loadMore)
	}
	if m.snapshot.Notice != nil {
		keys = append(keys, m.keys.dismiss)
	}
	keys = append(keys, m.keys.signOut, m.keys.quit)
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) countLine() string {
	total := m.snapshot.Count()
	shown := len(m.resultList.Items())

	line := fmt.Sprintf("%d playlists", total)
	if shown != total {
		line = fmt.Sprintf("%d of %d playlists", shown, total)
	}
	switch {
	case m.snapshot.State == tasks.LoadingMore:
		line += " • loading more..."
	case m.snapshot.HasMore:
		line += " • more available"
	}
	return line
}

func (m *Model) renderSignIn() string {
	title := styles.title.Render("Sign in to Spotify")
	msg := "Your session is missing or has expired.\nSign in to search playlists by mood."
	if m.signingIn {
		msg = "Complete the authorization in your browser."
	}
	if m.err != nil {
		msg = fmt.Sprintf("%s\n\n%s", msg, styles.err.Render(m.err.Error()))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.signIn, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", m.header(), title, styles.box.Render(msg), helpView)
}

func (m *Model) renderError() string {
	err := m.err
	if err == nil {
		err = m.snapshot.Err
	}
	title := styles.err.Render("Search failed")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%v\n\n%s", m.header(), title, err, helpView)
}
