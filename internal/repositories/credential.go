package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/moodify/internal/models"
)

const (
	KeyAccessToken    = "spotify_access_token"
	KeyRefreshToken   = "spotify_refresh_token"
	KeyExpirationDate = "spotify_token_expiration_date"
)

// CredentialStore persists a [models.Credential] as three keys in a [KVStore].
//
// Reads and writes are serialized so a reader in this process never sees a half-written credential.
// When the store implements [BatchSetter] the three keys are also written atomically on disk.
type CredentialStore struct {
	mu sync.Mutex
	kv KVStore
}

// NewCredentialStore creates a new [CredentialStore] backed by kv.
func NewCredentialStore(kv KVStore) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Get returns the stored credential or nil when no access token is stored.
//
// An unparseable expiration date is treated as unknown.
func (s *CredentialStore) Get(ctx context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, ok, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if !ok || access == "" {
		return nil, nil
	}

	c := &models.Credential{AccessToken: access}

	if refresh, ok, err := s.kv.Get(ctx, KeyRefreshToken); err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	} else if ok {
		c.RefreshToken = refresh
	}

	if raw, ok, err := s.kv.Get(ctx, KeyExpirationDate); err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	} else if ok {
		if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			c.ExpiresAt = t
		}
	}

	return c, nil
}

// Set stores c, or clears every credential key when c is nil.
func (s *CredentialStore) Set(ctx context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := credentialValues(c)

	if batch, ok := s.kv.(BatchSetter); ok {
		if err := batch.SetMany(ctx, values); err != nil {
			return fmt.Errorf("failed to store credential: %w", err)
		}
		return nil
	}

	// The access token decides signed-in state, so it is written last and cleared first.
	order := []string{KeyRefreshToken, KeyExpirationDate, KeyAccessToken}
	if c == nil {
		order = []string{KeyAccessToken, KeyRefreshToken, KeyExpirationDate}
	}
	for _, key := range order {
		if err := s.kv.Set(ctx, key, values[key]); err != nil {
			return fmt.Errorf("failed to store credential: %w", err)
		}
	}
	return nil
}

func credentialValues(c *models.Credential) map[string]*string {
	values := map[string]*string{KeyAccessToken: nil, KeyRefreshToken: nil, KeyExpirationDate: nil}
	if c == nil || c.AccessToken == "" {
		return values
	}

	values[KeyAccessToken] = StringPtr(c.AccessToken)
	if c.RefreshToken != "" {
		values[KeyRefreshToken] = StringPtr(c.RefreshToken)
	}
	if !c.ExpiresAt.IsZero() {
		values[KeyExpirationDate] = StringPtr(c.ExpiresAt.UTC().Format(time.RFC3339Nano))
	}
	return values
}
