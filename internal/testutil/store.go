package testutil

import (
	"context"
	"sync/atomic"
	"time"
)

// FailingStore is a cachestore.Store whose every call fails.
type FailingStore struct {
	Err error

	gets   atomic.Int64
	writes atomic.Int64
}

// Get fails.
func (s *FailingStore) Get(context.Context, string) ([]byte, bool, error) {
	s.gets.Add(1)
	return nil, false, s.Err
}

// Set fails.
func (s *FailingStore) Set(context.Context, string, []byte, time.Duration) error {
	s.writes.Add(1)
	return s.Err
}

// Delete fails.
func (s *FailingStore) Delete(context.Context, string) error {
	s.writes.Add(1)
	return s.Err
}

// Gets returns how many reads were attempted.
func (s *FailingStore) Gets() int64 { return s.gets.Load() }

// Writes returns how many writes or deletes were attempted.
func (s *FailingStore) Writes() int64 { return s.writes.Load() }
