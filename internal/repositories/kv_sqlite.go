package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	kvSelect = `SELECT value FROM kv_store WHERE key = ?`
	kvUpsert = `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	kvDelete = `DELETE FROM kv_store WHERE key = ?`
)

// SQLiteKVStore implements [KVStore] and [BatchSetter] on the kv_store table.
type SQLiteKVStore struct {
	db *sql.DB
}

// NewSQLiteKVStore creates a new [SQLiteKVStore]. The database must already be migrated.
func NewSQLiteKVStore(db *sql.DB) *SQLiteKVStore {
	return &SQLiteKVStore{db: db}
}

func (s *SQLiteKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, kvSelect, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteKVStore) Set(ctx context.Context, key string, value *string) error {
	return s.SetMany(ctx, map[string]*string{key: value})
}

// SetMany applies every write in a single transaction.
func (s *SQLiteKVStore) SetMany(ctx context.Context, values map[string]*string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, key := range sortedKeys(values) {
		if v := values[key]; v != nil {
			_, err = tx.ExecContext(ctx, kvUpsert, key, *v, now)
		} else {
			_, err = tx.ExecContext(ctx, kvDelete, key)
		}
		if err != nil {
			return fmt.Errorf("failed to write key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
