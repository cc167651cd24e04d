// Package keyindex maintains, per bucket, the set of keys known to exist in
// the remote store.
//
// Each bucket's keys live in one serialized blob in a cachestore.Store. Every
// mutation reads, modifies and rewrites the whole blob. Writers in the same
// process are serialized per bucket; across processes, stores implementing
// cachestore.Swapper get compare-and-swap commits, others fall back to last
// writer wins.
//
// The index is best effort. Store and decode failures are logged and
// counted, never returned: a broken cache reads as an empty one.
package keyindex

import (
	"context"
	"sync"
	"time"

	"github.com/jmgilman/go/bucketcache/cachestore"
	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/logging"
	"github.com/jmgilman/go/bucketcache/metrics"
)

const (
	// DefaultMaxSwapAttempts bounds compare-and-swap retries per mutation.
	DefaultMaxSwapAttempts = 5

	// DefaultCompressThreshold is the key count above which blobs are
	// compressed.
	DefaultCompressThreshold = 512
)

// Index reads and writes bucket key indexes.
type Index struct {
	store             cachestore.Store
	swapper           cachestore.Swapper
	enabled           bool
	logger            *logging.Logger
	metrics           *metrics.Metrics
	maxSwapAttempts   int
	compressThreshold int

	locks sync.Map // map[string]*sync.Mutex, one per bucket ID
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for degraded-cache warnings.
func WithLogger(logger *logging.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Index) { idx.metrics = m }
}

// WithMaxSwapAttempts sets how many times a conflicting write is retried.
func WithMaxSwapAttempts(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.maxSwapAttempts = n
		}
	}
}

// WithCompressThreshold sets the key count above which blobs are compressed.
// Zero or negative disables compression.
func WithCompressThreshold(n int) Option {
	return func(idx *Index) { idx.compressThreshold = n }
}

// New creates an Index over store. A nil store disables caching.
func New(store cachestore.Store, opts ...Option) *Index {
	if store == nil {
		store = cachestore.Nop{}
	}

	idx := &Index{
		store:             store,
		enabled:           !cachestore.IsNop(store),
		logger:            logging.NewNopLogger(),
		maxSwapAttempts:   DefaultMaxSwapAttempts,
		compressThreshold: DefaultCompressThreshold,
	}
	if sw, ok := store.(cachestore.Swapper); ok {
		idx.swapper = sw
	}

	for _, opt := range opts {
		opt(idx)
	}

	return idx
}

// Enabled reports whether a real store backs the index.
func (idx *Index) Enabled() bool {
	return idx.enabled
}

// Get returns the records known for bucket in insertion order. It returns
// an empty slice when nothing is cached or the cache cannot be read.
func (idx *Index) Get(ctx context.Context, bucket string) []Record {
	if !idx.enabled || bucket == "" {
		return nil
	}
	idx.metrics.RecordIndexOp(metrics.OpGet)

	records, _, _ := idx.load(ctx, bucket, metrics.OpGet)
	return records
}

// Keys returns the compound form of every record known for bucket.
func (idx *Index) Keys(ctx context.Context, bucket string) []string {
	records := idx.Get(ctx, bucket)
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Compound()
	}
	return keys
}

// Add records key (and versionID, if non-empty) for bucket. Keys without a
// file extension are stored as directory markers. Adding a pair that is
// already present does nothing.
func (idx *Index) Add(ctx context.Context, bucket, key, versionID string, ttl time.Duration) {
	if !idx.enabled || bucket == "" || key == "" {
		return
	}
	idx.metrics.RecordIndexOp(metrics.OpAdd)

	rec := Record{Key: NormalizeKey(key), VersionID: versionID}
	compound := rec.Compound()

	idx.mutate(ctx, bucket, metrics.OpAdd, ttl, func(records []Record) ([]Record, bool) {
		for _, r := range records {
			if r.Compound() == compound {
				return records, false
			}
		}
		return append(records, rec), true
	})
}

// AddAll records every record in one write. Normalization and duplicate
// handling match Add.
func (idx *Index) AddAll(ctx context.Context, bucket string, records []Record, ttl time.Duration) {
	if !idx.enabled || bucket == "" || len(records) == 0 {
		return
	}
	idx.metrics.RecordIndexOp(metrics.OpAdd)

	idx.mutate(ctx, bucket, metrics.OpAdd, ttl, func(existing []Record) ([]Record, bool) {
		seen := make(map[string]bool, len(existing)+len(records))
		for _, r := range existing {
			seen[r.Compound()] = true
		}

		changed := false
		for _, r := range records {
			if r.Key == "" {
				continue
			}
			r.Key = NormalizeKey(r.Key)
			compound := r.Compound()
			if seen[compound] {
				continue
			}
			seen[compound] = true
			existing = append(existing, r)
			changed = true
		}
		return existing, changed
	})
}

// Remove drops every version of key from bucket's index. An empty key
// flushes the whole bucket.
func (idx *Index) Remove(ctx context.Context, bucket, key string) {
	if key == "" {
		idx.Flush(ctx, bucket)
		return
	}
	if !idx.enabled || bucket == "" {
		return
	}
	idx.metrics.RecordIndexOp(metrics.OpRemove)

	key = NormalizeKey(key)
	idx.mutate(ctx, bucket, metrics.OpRemove, 0, func(records []Record) ([]Record, bool) {
		return filter(records, func(r Record) bool { return r.Key != key })
	})
}

// RemoveVersion drops the single record matching key and versionID.
func (idx *Index) RemoveVersion(ctx context.Context, bucket, key, versionID string) {
	if !idx.enabled || bucket == "" || key == "" {
		return
	}
	idx.metrics.RecordIndexOp(metrics.OpRemove)

	compound := Record{Key: NormalizeKey(key), VersionID: versionID}.Compound()
	idx.mutate(ctx, bucket, metrics.OpRemove, 0, func(records []Record) ([]Record, bool) {
		return filter(records, func(r Record) bool { return r.Compound() != compound })
	})
}

// Flush deletes bucket's index.
func (idx *Index) Flush(ctx context.Context, bucket string) {
	if !idx.enabled || bucket == "" {
		return
	}
	idx.metrics.RecordIndexOp(metrics.OpFlush)

	lock := idx.getBucketLock(bucket)
	lock.Lock()
	defer lock.Unlock()

	if err := idx.store.Delete(ctx, BucketID(bucket)); err != nil {
		idx.degraded(ctx, metrics.OpFlush, bucket, err, "failed to flush index")
	}
}

// getBucketLock returns the mutex guarding bucket, creating one if necessary.
func (idx *Index) getBucketLock(bucket string) *sync.Mutex {
	lock, _ := idx.locks.LoadOrStore(BucketID(bucket), &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// load reads and decodes bucket's blob. raw is the stored value as read, for
// use as the compare-and-swap baseline. ok is false if the store failed.
func (idx *Index) load(ctx context.Context, bucket, op string) (records []Record, raw []byte, ok bool) {
	data, found, err := idx.store.Get(ctx, BucketID(bucket))
	if err != nil {
		idx.degraded(ctx, op, bucket, err, "failed to read index")
		return nil, nil, false
	}
	if !found {
		return nil, nil, true
	}

	records, err = decodeBlob(data)
	if err != nil {
		idx.degraded(ctx, op, bucket, err, "discarding unreadable index")
		return nil, data, true
	}
	return records, data, true
}

// mutate applies fn to bucket's records and writes the result back. fn
// reports whether anything changed; unchanged results are not written.
func (idx *Index) mutate(ctx context.Context, bucket, op string, ttl time.Duration, fn func([]Record) ([]Record, bool)) {
	lock := idx.getBucketLock(bucket)
	lock.Lock()
	defer lock.Unlock()

	id := BucketID(bucket)
	for attempt := 0; attempt < idx.maxSwapAttempts; attempt++ {
		records, prev, ok := idx.load(ctx, bucket, op)
		if !ok {
			return
		}

		next, changed := fn(records)
		if !changed {
			return
		}

		blob, err := encodeBlob(next, idx.compressThreshold)
		if err != nil {
			idx.degraded(ctx, op, bucket, err, "failed to encode index")
			return
		}

		if idx.swapper == nil {
			if err := idx.store.Set(ctx, id, blob, ttl); err != nil {
				idx.degraded(ctx, op, bucket, err, "failed to write index")
			}
			return
		}

		swapped, err := idx.swapper.CompareAndSwap(ctx, id, prev, blob, ttl)
		if err != nil {
			idx.degraded(ctx, op, bucket, err, "failed to write index")
			return
		}
		if swapped {
			return
		}

		idx.metrics.RecordSwapConflict()
		idx.logger.WithOperation(op).WithBucket(bucket).
			Debug(ctx, "index changed concurrently, retrying", "attempt", attempt+1)
	}

	idx.degraded(ctx, op, bucket,
		errors.Newf(errors.CodeConflict, "gave up after %d conflicting writes", idx.maxSwapAttempts),
		"failed to write index")
}

func (idx *Index) degraded(ctx context.Context, op, bucket string, cause error, msg string) {
	idx.metrics.RecordDegraded(op)
	err := errors.WrapWithContext(cause, errors.CodeCacheDegraded, msg, map[string]interface{}{
		"bucket":    bucket,
		"operation": op,
	})
	idx.logger.WithOperation(op).WithBucket(bucket).Warn(ctx, msg, "error", err)
}

func filter(records []Record, keep func(Record) bool) ([]Record, bool) {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, len(out) != len(records)
}
