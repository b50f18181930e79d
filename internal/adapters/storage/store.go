// Package storage defines the key-value port behind the page's persistent
// state and its backends (memory, sqlite, redis).
package storage

import (
	"context"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Backend is a Store that owns resources.
type Backend interface {
	Store
	Close() error
	Name() string
}

// scoped prefixes every key so several browsers can share one backend.
type scoped struct {
	inner  Store
	prefix string
}

// Scoped returns a view of inner where every key is prefixed.
func Scoped(inner Store, prefix string) Store {
	return &scoped{inner: inner, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	return s.inner.Delete(ctx, prefixed...)
}

// LocalPrefix is the namespace of one browser's persistent values.
func LocalPrefix(clientID string) string {
	return "local:" + clientID + ":"
}
