// Package listing answers bucket listing requests from the key index when it
// can and from the remote store when it must, repairing the index from every
// remote answer.
//
// A request is served in this order:
//
//  1. ExcludeCache set: remote. The index is not consulted for the answer,
//     though write-through still reads it once to merge the new keys.
//  2. Index enabled and a prefix given: keys resolved from the index, unless
//     none match, in which case the request falls through to remote.
//  3. Otherwise: remote.
//
// Remote answers skip directory markers and are written back to the index.
// Hydrated requests fetch the metadata of every returned key concurrently;
// results keep listing order and any failed fetch fails the request.
package listing

import (
	"context"
	"time"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/gateway"
	"github.com/jmgilman/go/bucketcache/keycodec"
	"github.com/jmgilman/go/bucketcache/keyenc"
	"github.com/jmgilman/go/bucketcache/keyindex"
	"github.com/jmgilman/go/bucketcache/logging"
	"github.com/jmgilman/go/bucketcache/metrics"
	"github.com/jmgilman/go/bucketcache/pathprefix"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent metadata fetches during hydration.
const DefaultConcurrency = 8

// Source says where a listing came from.
type Source string

// Listing sources.
const (
	SourceCache  Source = metrics.SourceCache
	SourceRemote Source = metrics.SourceRemote
)

// Request describes a listing.
type Request struct {
	Bucket string
	// Prefix restricts the listing to one simulated directory. A missing
	// trailing separator is added.
	Prefix string
	// Delimiter is passed to the remote store when Prefix is set. Defaults
	// to "/".
	Delimiter string
	// ExcludeCache forces a remote listing. The index is not used to answer
	// the request, but write-through still performs one read of the bucket's
	// index to merge the observed keys. A failing cache never fails the
	// listing.
	ExcludeCache bool
	// Hydrate fetches full metadata for every key.
	Hydrate bool
}

// Item pairs a listing identifier with its metadata.
type Item struct {
	ID   string
	Info gateway.ObjectInfo
}

// Result is the answer to a Request.
type Result struct {
	Source Source
	// Keys holds identifiers in listing order: plain keys, or compound keys
	// for versioned buckets.
	Keys []string
	// Items is set for hydrated requests, in the same order as Keys.
	Items []Item
}

// target is one key to hydrate.
type target struct {
	id        string
	key       string
	versionID string
}

// Reconciler serves listing requests.
type Reconciler struct {
	gateway     gateway.Gateway
	index       *keyindex.Index
	encoder     keyenc.Encoder
	logger      *logging.Logger
	metrics     *metrics.Metrics
	concurrency int
	ttl         time.Duration
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithEncoder sets the transport key encoder.
func WithEncoder(enc keyenc.Encoder) Option {
	return func(r *Reconciler) {
		if enc != nil {
			r.encoder = enc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithConcurrency bounds concurrent hydration fetches.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithTTL sets the TTL applied to index writes.
func WithTTL(ttl time.Duration) Option {
	return func(r *Reconciler) { r.ttl = ttl }
}

// New creates a Reconciler. A nil index disables caching.
func New(gw gateway.Gateway, index *keyindex.Index, opts ...Option) *Reconciler {
	if index == nil {
		index = keyindex.New(nil)
	}

	r := &Reconciler{
		gateway:     gw,
		index:       index,
		encoder:     keyenc.Identity{},
		logger:      logging.NewNopLogger(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// List answers req.
func (r *Reconciler) List(ctx context.Context, req Request) (*Result, error) {
	if req.Bucket == "" {
		return nil, errors.New(errors.CodeInvalidInput, "bucket is required")
	}

	prefix := pathprefix.EnsureTrailingSeparator(req.Prefix)
	delimiter := ""
	if prefix != "" {
		delimiter = req.Delimiter
		if delimiter == "" {
			delimiter = pathprefix.Separator
		}
	}
	transportPrefix := r.encoder.Encode(prefix)

	logger := r.logger.WithOperation("list").WithBucket(req.Bucket)

	if !req.ExcludeCache && r.index.Enabled() && prefix != "" {
		targets := r.fromIndex(ctx, req.Bucket, transportPrefix)
		if len(targets) > 0 {
			logger.Debug(ctx, "listing served from cache", "prefix", prefix, "count", len(targets))
			r.metrics.RecordListing(metrics.SourceCache)
			return r.finish(ctx, req, SourceCache, targets)
		}
		r.metrics.RecordCacheMiss()
		logger.Debug(ctx, "cache miss", "prefix", prefix)
	}

	targets, err := r.fromRemote(ctx, req.Bucket, gateway.ListOptions{Prefix: transportPrefix, Delimiter: delimiter})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "listing served from remote", "prefix", prefix, "count", len(targets))
	r.metrics.RecordListing(metrics.SourceRemote)
	return r.finish(ctx, req, SourceRemote, targets)
}

// fromIndex resolves prefix against the index, dropping directory markers.
// Records are grouped by their raw key so version ids never affect which
// directory a record belongs to.
func (r *Reconciler) fromIndex(ctx context.Context, bucket, prefix string) []target {
	resolver := pathprefix.NewResolverFunc(r.index.Get(ctx, bucket), func(rec keyindex.Record) string {
		return rec.Key
	})
	if !resolver.Has(prefix) {
		r.logger.WithBucket(bucket).Debug(ctx, "prefix not indexed, resolving against the whole index", "prefix", prefix)
	}

	resolved := resolver.Resolve(prefix)
	targets := make([]target, 0, len(resolved))
	for _, rec := range resolved {
		if rec.IsDirectoryMarker() {
			continue
		}
		targets = append(targets, target{
			id:        keycodec.Encode(r.logicalKey(ctx, rec.Key), rec.VersionID),
			key:       rec.Key,
			versionID: rec.VersionID,
		})
	}
	return targets
}

// fromRemote lists the bucket remotely and writes every observed key back to
// the index.
func (r *Reconciler) fromRemote(ctx context.Context, bucket string, opts gateway.ListOptions) ([]target, error) {
	versioned, err := r.gateway.IsVersioned(ctx, bucket)
	if err != nil {
		return nil, err
	}

	var targets []target
	if versioned {
		versions, err := r.gateway.ListVersions(ctx, bucket, opts)
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if v.IsDeleteMarker || pathprefix.IsDirectoryMarker(v.Key) {
				continue
			}
			targets = append(targets, target{
				id:        keycodec.Encode(r.logicalKey(ctx, v.Key), v.VersionID),
				key:       v.Key,
				versionID: v.VersionID,
			})
		}
	} else {
		objects, err := r.gateway.List(ctx, bucket, opts)
		if err != nil {
			return nil, err
		}
		for _, o := range objects {
			if pathprefix.IsDirectoryMarker(o.Key) {
				continue
			}
			targets = append(targets, target{
				id:  r.logicalKey(ctx, o.Key),
				key: o.Key,
			})
		}
	}

	records := make([]keyindex.Record, len(targets))
	for i, t := range targets {
		records[i] = keyindex.Record{Key: t.key, VersionID: t.versionID}
	}
	r.index.AddAll(ctx, bucket, records, r.ttl)

	return targets, nil
}

// logicalKey decodes a transport key, keeping it as is when it was not
// produced by the encoder.
func (r *Reconciler) logicalKey(ctx context.Context, transportKey string) string {
	key, err := r.encoder.Decode(transportKey)
	if err != nil {
		r.logger.Debug(ctx, "key not decodable, using transport form", "key", transportKey, "error", err)
		return transportKey
	}
	return key
}

func (r *Reconciler) finish(ctx context.Context, req Request, source Source, targets []target) (*Result, error) {
	res := &Result{Source: source, Keys: make([]string, len(targets))}
	for i, t := range targets {
		res.Keys[i] = t.id
	}

	if !req.Hydrate {
		return res, nil
	}

	items, err := r.hydrate(ctx, req.Bucket, targets)
	if err != nil {
		return nil, err
	}
	res.Items = items
	return res, nil
}

// hydrate fetches metadata for every target concurrently. Items are placed by
// position so the output order matches targets.
func (r *Reconciler) hydrate(ctx context.Context, bucket string, targets []target) ([]Item, error) {
	items := make([]Item, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			info, err := r.gateway.GetItem(gctx, bucket, t.key, t.versionID)
			if err != nil {
				return errors.WrapWithContext(err, errors.CodeHydrationFailed, "failed to hydrate listing", map[string]interface{}{
					"bucket":  bucket,
					"key":     t.key,
					"version": t.versionID,
				})
			}
			items[i] = Item{ID: t.id, Info: info}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.metrics.RecordHydrationFailure()
		r.logger.WithOperation("hydrate").WithBucket(bucket).Error(ctx, "hydration failed", "error", err)
		return nil, err
	}

	r.metrics.RecordHydrated(len(items))
	return items, nil
}
