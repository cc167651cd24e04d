package cachestore

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// memoryEntry is a stored value and its expiry.
type memoryEntry struct {
	data      []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e *memoryEntry) isExpired(now time.Time) bool {
	if e.ttl <= 0 {
		return false
	}
	return now.Sub(e.createdAt) > e.ttl
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// Memory is an in-process Store. Values are copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the value for key. Expired entries are removed.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(entry.data), true, nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(key, value, ttl)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// CompareAndSwap implements Swapper.
func (m *Memory) CompareAndSwap(_ context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	switch {
	case prev == nil && ok:
		return false, nil
	case prev != nil && (!ok || !bytes.Equal(entry.data, prev)):
		return false, nil
	}

	m.put(key, next, ttl)
	return true, nil
}

// Len returns the number of unexpired entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	n := 0
	for _, entry := range m.entries {
		if !entry.isExpired(now) {
			n++
		}
	}
	return n
}

// lookup returns the live entry for key, dropping it if expired. Callers hold
// the write lock.
func (m *Memory) lookup(key string) (*memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if entry.isExpired(m.now()) {
		delete(m.entries, key)
		return nil, false
	}
	return entry, true
}

func (m *Memory) put(key string, value []byte, ttl time.Duration) {
	m.entries[key] = &memoryEntry{
		data:      bytes.Clone(value),
		createdAt: m.now(),
		ttl:       ttl,
	}
}

var (
	_ Store   = (*Memory)(nil)
	_ Swapper = (*Memory)(nil)
)
