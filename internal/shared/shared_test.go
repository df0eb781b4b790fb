package shared

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes key values", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("search", "query", "happy")

		out := buf.String()
		if !strings.Contains(out, "search") || !strings.Contains(out, "query=happy") {
			t.Errorf("unexpected log output: %q", out)
		}
	})

	t.Run("SetLogLevel filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})

	t.Run("WithLogger adds context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "auth")
		logger.Info("ready")
		if !strings.Contains(buf.String(), "component=auth") {
			t.Errorf("expected prefix fields, got %q", buf.String())
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
	if GenerateID() == GenerateID() {
		t.Error("expected distinct ids")
	}
}

func TestErrors(t *testing.T) {
	t.Run("TokenExchangeError", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := fmt.Errorf("wrapped: %w", &TokenExchangeError{StatusCode: 400, Err: cause})

		if !errors.Is(err, ErrTokenExchangeFailed) {
			t.Error("expected ErrTokenExchangeFailed")
		}
		if !errors.Is(err, cause) {
			t.Error("expected cause to unwrap")
		}

		var tee *TokenExchangeError
		if !errors.As(err, &tee) || tee.StatusCode != 400 {
			t.Errorf("expected status 400, got %+v", tee)
		}
		if !strings.Contains(err.Error(), "status 400") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("RemoteError", func(t *testing.T) {
		err := &RemoteError{StatusCode: 429, Message: "API rate limit exceeded"}
		if !errors.Is(err, ErrRemote) {
			t.Error("expected ErrRemote")
		}
		if !strings.Contains(err.Error(), "rate limit") {
			t.Errorf("unexpected message %q", err.Error())
		}
		if got := (&RemoteError{StatusCode: 500}).Error(); !strings.HasSuffix(got, "status 500") {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("IsSignInRequired", func(t *testing.T) {
		tc := []struct {
			err  error
			want bool
		}{
			{ErrNotAuthenticated, true},
			{fmt.Errorf("x: %w", ErrSessionExpired), true},
			{ErrAuthenticationCancelled, true},
			{ErrNetwork, false},
			{&RemoteError{StatusCode: 500}, false},
			{nil, false},
		}
		for _, tt := range tc {
			if got := IsSignInRequired(tt.err); got != tt.want {
				t.Errorf("IsSignInRequired(%v) = %v, want %v", tt.err, got, tt.want)
			}
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-http", func(t *testing.T) {
		if err := OpenBrowser("file:///etc/passwd"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		defer func() { getRuntime = orig }()
		getRuntime = func() string { return "plan9" }

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error on unsupported platform")
		}
	})

	t.Run("command per platform", func(t *testing.T) {
		orig := getRuntime
		defer func() { getRuntime = orig }()

		for rt, bin := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
			getRuntime = func() string { return rt }
			cmd, err := browserCommand("https://example.com")
			if err != nil {
				t.Fatalf("%s: unexpected error %v", rt, err)
			}
			if !strings.HasSuffix(cmd.Path, bin) && cmd.Args[0] != bin {
				t.Errorf("%s: expected %s, got %v", rt, bin, cmd.Args)
			}
		}
	})
}
