package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodify/internal/services"
	"github.com/desertthunder/moodify/internal/shared"
)

var _ services.RedirectCapturer = (*LoopbackCapturer)(nil)

// LoopbackCapturer implements [services.RedirectCapturer] with a short-lived HTTP server on the redirect URI's host.
//
// The server only lives for the duration of one Capture call.
type LoopbackCapturer struct {
	addr    string
	path    string
	open    func(string) error
	out     io.Writer
	timeout time.Duration
	logger  *log.Logger

	mu    sync.Mutex
	bound string
}

// LoopbackConfig configures a [LoopbackCapturer].
//
// Open defaults to [shared.OpenBrowser]. Out receives the fallback message when the browser cannot be opened.
type LoopbackConfig struct {
	RedirectURI string
	Open        func(string) error
	Out         io.Writer
	Timeout     time.Duration
}

// NewLoopbackCapturer creates a capturer listening on the host and path of cfg.RedirectURI.
func NewLoopbackCapturer(cfg LoopbackConfig, logger *log.Logger) (*LoopbackCapturer, error) {
	u, err := url.Parse(cfg.RedirectURI)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid redirect uri %q", shared.ErrInvalidConfig, cfg.RedirectURI)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("%w: loopback redirect must use http, got %q", shared.ErrInvalidConfig, u.Scheme)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	c := &LoopbackCapturer{
		addr:    u.Host,
		path:    path,
		open:    cfg.Open,
		out:     cfg.Out,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if c.open == nil {
		c.open = shared.OpenBrowser
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.timeout <= 0 {
		c.timeout = 2 * time.Minute
	}
	if c.logger == nil {
		c.logger = shared.NewDiscardLogger()
	}
	return c, nil
}

// BoundAddr returns the address the server is listening on during a Capture call.
func (c *LoopbackCapturer) BoundAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

func (c *LoopbackCapturer) setBound(addr string) {
	c.mu.Lock()
	c.bound = addr
	c.mu.Unlock()
}

// Capture starts the callback server, opens authURL and waits for the redirect.
//
// A cancelled context or an access_denied redirect yields a cancelled result.
// Expiry of the timeout returns [shared.ErrTimeout].
func (c *LoopbackCapturer) Capture(ctx context.Context, authURL, callbackScheme string) (services.RedirectResult, error) {
	if callbackScheme != "http" {
		return services.RedirectResult{}, fmt.Errorf("%w: unsupported callback scheme %q", shared.ErrConfiguration, callbackScheme)
	}

	handler := NewCallbackHandler(c.path)
	router := NewBasicRouter()
	router.Use(RequestLogger(c.logger))
	router.Handle(http.MethodGet, handler.Path(), handler)

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return services.RedirectResult{}, fmt.Errorf("failed to listen on %s: %w", c.addr, err)
	}
	c.setBound(ln.Addr().String())
	defer c.setBound("")

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		c.logger.Debug("starting callback server", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if err := c.open(authURL); err != nil {
		c.logger.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintf(c.out, "Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
	}

	timeout := time.NewTimer(c.timeout)
	defer timeout.Stop()

	select {
	case res := <-handler.Result():
		return toRedirectResult(res), nil
	case err := <-serverErrors:
		return services.RedirectResult{}, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return services.RedirectResult{Cancelled: true}, nil
	case <-timeout.C:
		return services.RedirectResult{}, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, c.timeout)
	}
}

func toRedirectResult(res CallbackResult) services.RedirectResult {
	switch {
	case res.Error == "access_denied":
		return services.RedirectResult{Cancelled: true, State: res.State}
	case res.Error != "":
		return services.RedirectResult{State: res.State, Err: fmt.Errorf("authorization failed: %s %s", res.Error, res.ErrorDescription)}
	case res.Code == "":
		return services.RedirectResult{State: res.State, Err: errors.New("redirect carried no code")}
	default:
		return services.RedirectResult{Code: res.Code, State: res.State}
	}
}
