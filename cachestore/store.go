// Package cachestore defines the key/value backend used to persist key
// indexes, together with in-memory, bbolt and Redis implementations.
//
// Stores enforce TTL on read: an expired value is reported as absent. There is
// no background sweep.
package cachestore

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("cache store is closed")

// Store is a key/value store with optional per-entry TTL. A zero TTL means
// the entry never expires.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Swapper is implemented by stores that support conditional writes.
type Swapper interface {
	// CompareAndSwap stores next under key only if the current value equals
	// prev. A nil prev means the key must be absent or expired. It reports
	// whether the write happened.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error)
}

// Nop is a Store that holds nothing. Get always misses and writes are
// discarded.
type Nop struct{}

// Get always reports a miss.
func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value.
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (Nop) Delete(context.Context, string) error { return nil }

// IsNop reports whether s is the Nop store or nil.
func IsNop(s Store) bool {
	if s == nil {
		return true
	}
	switch s.(type) {
	case Nop, *Nop:
		return true
	}
	return false
}

var _ Store = Nop{}
