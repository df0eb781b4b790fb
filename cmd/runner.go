package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodify/internal/repositories"
	"github.com/desertthunder/moodify/internal/server"
	"github.com/desertthunder/moodify/internal/services"
	"github.com/desertthunder/moodify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, the auth manager and the searcher are built on first use so commands that do not need them
// (setup config, moods) work without credentials or a database.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	httpClient  *http.Client
	openBrowser func(string) error
	capturer    services.RedirectCapturer
	captureOut  io.Writer

	db       *sql.DB
	kv       repositories.KVStore
	auth     *services.AuthManager
	searcher *services.PlaylistSearcher
	closers  []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB, KV and Capturer replace the storage and redirect capture built from the config.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Logger      *log.Logger
	Output      io.Writer
	HTTPClient  *http.Client
	OpenBrowser func(string) error
	DB          *sql.DB
	KV          repositories.KVStore
	Capturer    services.RedirectCapturer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		httpClient:  opts.HTTPClient,
		openBrowser: opts.OpenBrowser,
		capturer:    opts.Capturer,
		captureOut:  opts.Output,
		db:          opts.DB,
		kv:          opts.KV,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moodsCommand, searchCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the config named by --config and applies --verbose. It runs before every command.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	config, err := shared.LoadOrDefault(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("configuration loaded", "path", path, "backend", config.Storage.Backend)
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and every service built after the call.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database and redis connections opened by the runner.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) client() *http.Client {
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.config.SearchTimeout()}
	}
	return r.httpClient
}

// database opens the SQLite database and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("database opened", "path", r.config.Database.Path)
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

// kvStore returns the credential storage selected by storage.backend.
func (r *Runner) kvStore(ctx context.Context) (repositories.KVStore, error) {
	if r.kv != nil {
		return r.kv, nil
	}

	switch r.config.Storage.Backend {
	case "redis":
		client := repositories.NewRedisClient(r.config.Storage)
		store := repositories.NewRedisKVStore(client, r.config.Storage.KeyPrefix)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, err
		}
		r.logger.Debug("using redis credential storage", "addr", r.config.Storage.RedisAddr)
		r.closers = append(r.closers, client.Close)
		r.kv = store
	case "", "sqlite":
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		r.kv = repositories.NewSQLiteKVStore(db)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, r.config.Storage.Backend)
	}
	return r.kv, nil
}

// authManager builds the [services.AuthManager] with loopback redirect capture.
func (r *Runner) authManager(ctx context.Context) (*services.AuthManager, error) {
	if r.auth != nil {
		return r.auth, nil
	}

	kv, err := r.kvStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential storage: %w", err)
	}

	spotify := r.config.Credentials.Spotify
	spotify.RedirectURI = r.config.RedirectURI()

	capturer := r.capturer
	if capturer == nil {
		lc, err := server.NewLoopbackCapturer(server.LoopbackConfig{
			RedirectURI: spotify.RedirectURI,
			Open:        r.openBrowser,
			Out:         r.captureOut,
			Timeout:     r.config.AuthTimeout(),
		}, r.logger)
		if err != nil {
			return nil, err
		}
		capturer = lc
	}

	auth, err := services.NewAuthManager(ctx, spotify, repositories.NewCredentialStore(kv), r.logger,
		services.WithHTTPClient(r.client()),
		services.WithCapturer(capturer),
	)
	if err != nil {
		return nil, err
	}
	r.auth = auth
	return auth, nil
}

// playlistSearcher builds the [services.PlaylistSearcher] backed by the auth manager's token.
func (r *Runner) playlistSearcher(ctx context.Context) (*services.PlaylistSearcher, error) {
	if r.searcher != nil {
		return r.searcher, nil
	}

	auth, err := r.authManager(ctx)
	if err != nil {
		return nil, err
	}

	r.searcher = services.NewPlaylistSearcher(auth, r.client(), services.SearcherConfig{
		BaseURL:   r.config.Credentials.Spotify.APIBaseURL,
		RateLimit: r.config.Search.RateLimit,
	}, r.logger)
	return r.searcher, nil
}

// searchHistory returns the SQLite search history, regardless of the credential backend.
func (r *Runner) searchHistory() (*repositories.SearchHistoryRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewSearchHistoryRepository(db), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
