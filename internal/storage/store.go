// Package storage holds the durable key-value stores backing session ledgers.
package storage

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by Get when a key has no value
var ErrNotFound = errors.New("storage: key not found")

// KVStore is a string key-value store. SetMany writes all pairs atomically.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Set writes a single key
func Set(ctx context.Context, s KVStore, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// sortedKeys gives backends a deterministic write order
func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
