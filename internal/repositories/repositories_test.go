package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
	tu "github.com/desertthunder/moodify/internal/testing"
	"github.com/go-redis/redismock/v9"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteKVStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Get missing key", func(t *testing.T) {
		store := NewSQLiteKVStore(setupTestDB(t))

		_, ok, err := store.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected missing key")
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		store := NewSQLiteKVStore(setupTestDB(t))

		if err := store.Set(ctx, "k", StringPtr("v1")); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := store.Set(ctx, "k", StringPtr("v2")); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		v, ok, err := store.Get(ctx, "k")
		if err != nil || !ok {
			t.Fatalf("expected value, got ok=%v err=%v", ok, err)
		}
		if v != "v2" {
			t.Errorf("expected v2, got %s", v)
		}
	})

	t.Run("Set nil deletes", func(t *testing.T) {
		store := NewSQLiteKVStore(setupTestDB(t))

		_ = store.Set(ctx, "k", StringPtr("v"))
		if err := store.Set(ctx, "k", nil); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, ok, _ := store.Get(ctx, "k"); ok {
			t.Error("expected key to be deleted")
		}

		if err := store.Set(ctx, "missing", nil); err != nil {
			t.Errorf("deleting a missing key should succeed: %v", err)
		}
	})

	t.Run("SetMany", func(t *testing.T) {
		store := NewSQLiteKVStore(setupTestDB(t))
		_ = store.Set(ctx, "c", StringPtr("old"))

		err := store.SetMany(ctx, map[string]*string{"a": StringPtr("1"), "b": StringPtr("2"), "c": nil})
		if err != nil {
			t.Fatalf("SetMany() error = %v", err)
		}

		for key, want := range map[string]string{"a": "1", "b": "2"} {
			if v, ok, _ := store.Get(ctx, key); !ok || v != want {
				t.Errorf("key %s: expected %s, got %q (ok=%v)", key, want, v, ok)
			}
		}
		if _, ok, _ := store.Get(ctx, "c"); ok {
			t.Error("expected c to be deleted")
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewSQLiteKVStore(db)
		db.Close()

		if _, _, err := store.Get(ctx, "k"); err == nil {
			t.Error("expected error on closed database")
		}
		if err := store.Set(ctx, "k", StringPtr("v")); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestRedisKVStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisKVStore(client, "moodify:")

		mock.ExpectGet("moodify:k").SetVal("v")
		mock.ExpectGet("moodify:missing").RedisNil()

		v, ok, err := store.Get(ctx, "k")
		if err != nil || !ok || v != "v" {
			t.Errorf("expected v, got %q ok=%v err=%v", v, ok, err)
		}

		_, ok, err = store.Get(ctx, "missing")
		if err != nil || ok {
			t.Errorf("expected missing key, got ok=%v err=%v", ok, err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("Get error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisKVStore(client, "moodify:")

		mock.ExpectGet("moodify:k").SetErr(errors.New("connection refused"))

		if _, _, err := store.Get(ctx, "k"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Set and delete", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisKVStore(client, "moodify:")

		mock.ExpectSet("moodify:k", "v", 0).SetVal("OK")
		mock.ExpectDel("moodify:k").SetVal(1)

		if err := store.Set(ctx, "k", StringPtr("v")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := store.Set(ctx, "k", nil); err != nil {
			t.Fatalf("Set(nil) error = %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("SetMany uses a transaction", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisKVStore(client, "moodify:")

		mock.ExpectTxPipeline()
		mock.ExpectSet("moodify:a", "1", 0).SetVal("OK")
		mock.ExpectDel("moodify:b").SetVal(0)
		mock.ExpectTxPipelineExec()

		err := store.SetMany(ctx, map[string]*string{"b": nil, "a": StringPtr("1")})
		if err != nil {
			t.Fatalf("SetMany() error = %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisKVStore(client, "")

		mock.ExpectPing().SetErr(errors.New("down"))

		if err := store.Ping(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	backends := map[string]func(t *testing.T) KVStore{
		"sqlite": func(t *testing.T) KVStore { return NewSQLiteKVStore(setupTestDB(t)) },
		"memory": func(t *testing.T) KVStore { return tu.NewMemoryKVStore() },
	}

	for name, newKV := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("empty store", func(t *testing.T) {
				store := NewCredentialStore(newKV(t))
				c, err := store.Get(ctx)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if c != nil {
					t.Errorf("expected nil credential, got %+v", c)
				}
			})

			t.Run("round trip", func(t *testing.T) {
				store := NewCredentialStore(newKV(t))
				want := &models.Credential{AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: expires}

				if err := store.Set(ctx, want); err != nil {
					t.Fatalf("Set() error = %v", err)
				}

				got, err := store.Get(ctx)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if got == nil || got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(want.ExpiresAt) {
					t.Errorf("expected %+v, got %+v", want, got)
				}
			})

			t.Run("round trip keeps sub-second expiry", func(t *testing.T) {
				store := NewCredentialStore(newKV(t))
				want := &models.Credential{AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour)}

				if err := store.Set(ctx, want); err != nil {
					t.Fatalf("Set() error = %v", err)
				}

				got, err := store.Get(ctx)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if got == nil || !got.ExpiresAt.Equal(want.ExpiresAt) {
					t.Errorf("expected expiry %v, got %+v", want.ExpiresAt, got)
				}
			})

			t.Run("round trip without optional fields", func(t *testing.T) {
				store := NewCredentialStore(newKV(t))
				_ = store.Set(ctx, &models.Credential{AccessToken: "old", RefreshToken: "old-rt", ExpiresAt: expires})

				if err := store.Set(ctx, &models.Credential{AccessToken: "AT2"}); err != nil {
					t.Fatalf("Set() error = %v", err)
				}

				got, _ := store.Get(ctx)
				if got == nil || got.AccessToken != "AT2" || got.RefreshToken != "" || !got.ExpiresAt.IsZero() {
					t.Errorf("stale optional fields should be cleared, got %+v", got)
				}
			})

			t.Run("clear", func(t *testing.T) {
				kv := newKV(t)
				store := NewCredentialStore(kv)
				_ = store.Set(ctx, &models.Credential{AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: expires})

				if err := store.Set(ctx, nil); err != nil {
					t.Fatalf("Set(nil) error = %v", err)
				}

				got, _ := store.Get(ctx)
				if got != nil {
					t.Errorf("expected nil after clear, got %+v", got)
				}
				for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyExpirationDate} {
					if _, ok, _ := kv.Get(ctx, key); ok {
						t.Errorf("key %s should be cleared", key)
					}
				}
			})
		})
	}

	t.Run("bad expiration date is unknown", func(t *testing.T) {
		kv := tu.NewMemoryKVStore()
		_ = kv.Set(ctx, KeyAccessToken, StringPtr("AT"))
		_ = kv.Set(ctx, KeyExpirationDate, StringPtr("not a date"))

		got, err := NewCredentialStore(kv).Get(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || !got.ExpiresAt.IsZero() {
			t.Errorf("expected unknown expiry, got %+v", got)
		}
	})

	t.Run("store errors propagate", func(t *testing.T) {
		kv := tu.NewMemoryKVStore()
		kv.GetErr = errors.New("disk gone")
		kv.SetErr = errors.New("disk gone")
		store := NewCredentialStore(kv)

		if _, err := store.Get(ctx); err == nil {
			t.Error("expected Get error")
		}
		if err := store.Set(ctx, &models.Credential{AccessToken: "x"}); err == nil {
			t.Error("expected Set error")
		}
	})

	t.Run("redis batch write", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewCredentialStore(NewRedisKVStore(client, "m:"))

		mock.ExpectTxPipeline()
		mock.ExpectSet("m:"+KeyAccessToken, "AT1", 0).SetVal("OK")
		mock.ExpectDel("m:" + KeyRefreshToken).SetVal(0)
		mock.ExpectSet("m:"+KeyExpirationDate, expires.Format(time.RFC3339Nano), 0).SetVal("OK")
		mock.ExpectTxPipelineExec()

		if err := store.Set(ctx, &models.Credential{AccessToken: "AT1", ExpiresAt: expires}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestSearchHistoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Record generates id and timestamp", func(t *testing.T) {
		repo := NewSearchHistoryRepository(setupTestDB(t))
		rec := &models.SearchRecord{Query: "happy joy", Pages: 2, Results: 87}

		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if rec.ID == "" {
			t.Error("ID should be set")
		}
		if rec.CreatedAt.IsZero() {
			t.Error("CreatedAt should be set")
		}
	})

	t.Run("Record rejects empty query", func(t *testing.T) {
		repo := NewSearchHistoryRepository(setupTestDB(t))
		if err := repo.Record(ctx, &models.SearchRecord{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("List newest first with limit", func(t *testing.T) {
		repo := NewSearchHistoryRepository(setupTestDB(t))
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		for i, q := range []string{"first", "second", "third"} {
			rec := &models.SearchRecord{Query: q, Pages: 1, Results: i, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
			if err := repo.Record(ctx, rec); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		}

		all, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 records, got %d", len(all))
		}
		if all[0].Query != "third" || all[2].Query != "first" {
			t.Errorf("unexpected order: %s, %s, %s", all[0].Query, all[1].Query, all[2].Query)
		}

		limited, _ := repo.List(ctx, 2)
		if len(limited) != 2 {
			t.Errorf("expected 2 records, got %d", len(limited))
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewSearchHistoryRepository(setupTestDB(t))
		_ = repo.Record(ctx, &models.SearchRecord{Query: "a"})
		_ = repo.Record(ctx, &models.SearchRecord{Query: "b"})

		n, err := repo.Clear(ctx)
		if err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}

		records, _ := repo.List(ctx, 0)
		if len(records) != 0 {
			t.Errorf("expected empty history, got %d", len(records))
		}
	})
}
