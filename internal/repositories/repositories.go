package repositories

import (
	"context"
	"sort"
)

// KVStore is a durable string key-value store.
//
// Get reports ok=false for a missing key. Set with a nil value deletes the key.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value *string) error
}

// BatchSetter is implemented by stores that can apply several writes atomically.
type BatchSetter interface {
	SetMany(ctx context.Context, values map[string]*string) error
}

// sortedKeys returns the keys of values in ascending order so batches are applied deterministically.
func sortedKeys(values map[string]*string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
