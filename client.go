package bucketcache

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/jmgilman/go/bucketcache/cachestore"
	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/gateway"
	"github.com/jmgilman/go/bucketcache/gateway/minio"
	"github.com/jmgilman/go/bucketcache/keyenc"
	"github.com/jmgilman/go/bucketcache/keyindex"
	"github.com/jmgilman/go/bucketcache/listing"
	"github.com/jmgilman/go/bucketcache/logging"
	"github.com/jmgilman/go/bucketcache/metrics"
)

// DefaultLinkExpiry is the lifetime of a public link when none is given.
const DefaultLinkExpiry = time.Hour

// MetadataOriginalName is the user metadata key holding an upload's base name.
const MetadataOriginalName = "original_name"

// Client reads and writes objects through a gateway, keeping the key index
// in step.
type Client struct {
	gateway          gateway.Gateway
	index            *keyindex.Index
	lister           *listing.Reconciler
	encoder          keyenc.Encoder
	logger           *logging.Logger
	ttl              time.Duration
	autoCreateBucket bool
	closers          []io.Closer
}

type options struct {
	store             cachestore.Store
	logger            *logging.Logger
	metrics           *metrics.Metrics
	encoder           keyenc.Encoder
	ttl               time.Duration
	concurrency       int
	maxSwapAttempts   int
	compressThreshold int
	autoCreateBucket  bool
	closers           []io.Closer
}

// Option configures a Client.
type Option func(*options)

// WithStore sets the key index backend. Without one, caching is disabled.
func WithStore(store cachestore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEncoder sets the transport key encoder.
func WithEncoder(enc keyenc.Encoder) Option {
	return func(o *options) { o.encoder = enc }
}

// WithTTL sets the TTL of index entries. Zero never expires.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithHydrationConcurrency bounds concurrent metadata fetches when listing.
func WithHydrationConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithAutoCreateBucket creates missing buckets on upload.
func WithAutoCreateBucket(enabled bool) Option {
	return func(o *options) { o.autoCreateBucket = enabled }
}

// New creates a Client over gw.
func New(gw gateway.Gateway, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return newClient(gw, o)
}

func newClient(gw gateway.Gateway, o *options) *Client {
	logger := o.logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	encoder := o.encoder
	if encoder == nil {
		encoder = keyenc.Identity{}
	}

	index := keyindex.New(o.store,
		keyindex.WithLogger(logger),
		keyindex.WithMetrics(o.metrics),
		keyindex.WithMaxSwapAttempts(o.maxSwapAttempts),
		keyindex.WithCompressThreshold(compressThreshold(o.compressThreshold)),
	)

	return &Client{
		gateway: gw,
		index:   index,
		lister: listing.New(gw, index,
			listing.WithEncoder(encoder),
			listing.WithLogger(logger),
			listing.WithMetrics(o.metrics),
			listing.WithConcurrency(o.concurrency),
			listing.WithTTL(o.ttl),
		),
		encoder:          encoder,
		logger:           logger,
		ttl:              o.ttl,
		autoCreateBucket: o.autoCreateBucket,
		closers:          o.closers,
	}
}

func compressThreshold(n int) int {
	if n == 0 {
		return keyindex.DefaultCompressThreshold
	}
	return n
}

// NewFromConfig builds a Client talking to the MinIO/S3 endpoint in cfg, with
// the configured cache backend. Options override values from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ttl, _ := cfg.CacheTTL()
	o := &options{
		ttl:               ttl,
		concurrency:       cfg.Listing.HydrationConcurrency,
		maxSwapAttempts:   cfg.Cache.MaxSwapAttempts,
		compressThreshold: cfg.Cache.CompressThreshold,
		autoCreateBucket:  cfg.Storage.AutoCreateBucket,
	}
	if cfg.Encoder == EncoderHex {
		o.encoder = keyenc.Hex{}
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		level, _ := logging.ParseLogLevel(cfg.Log.Level)
		logCfg := logging.DefaultLogConfig()
		logCfg.Level = level
		logCfg.Format = cfg.Log.Format
		o.logger = logging.NewLogger(logCfg)
	}

	if o.store == nil {
		store, closer, err := openStore(cfg.Cache)
		if err != nil {
			return nil, err
		}
		o.store = store
		if closer != nil {
			o.closers = append(o.closers, closer)
		}
	}

	gw, err := minio.New(minio.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Region:    cfg.Storage.Region,
		Logger:    o.logger,
		Metrics:   o.metrics,
	})
	if err != nil {
		closeAll(o.closers)
		return nil, err
	}

	return newClient(gw, o), nil
}

// openStore creates the configured cache backend and, for backends holding
// resources, its closer.
func openStore(cfg CacheConfig) (cachestore.Store, io.Closer, error) {
	switch cfg.Backend {
	case BackendNone:
		return cachestore.Nop{}, nil, nil
	case BackendBolt:
		store, err := cachestore.OpenBolt(cachestore.BoltConfig{Path: cfg.Bolt.Path, Bucket: cfg.Bolt.Bucket})
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to open bolt cache")
		}
		return store, store, nil
	case BackendRedis:
		store, err := cachestore.NewRedis(cachestore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to create redis cache")
		}
		return store, store, nil
	default:
		return cachestore.NewMemory(), nil, nil
	}
}

// Close releases the cache backend.
func (c *Client) Close() error {
	return closeAll(c.closers)
}

func closeAll(closers []io.Closer) error {
	var first error
	for _, cl := range closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() gateway.Gateway {
	return c.gateway
}

// Index returns the key index.
func (c *Client) Index() *keyindex.Index {
	return c.index
}

// ListItems lists a bucket, from the index when possible.
func (c *Client) ListItems(ctx context.Context, req listing.Request) (*listing.Result, error) {
	return c.lister.List(ctx, req)
}

// GetItem returns the metadata of key. An empty versionID selects the latest
// version.
func (c *Client) GetItem(ctx context.Context, bucket, key, versionID string) (gateway.ObjectInfo, error) {
	if err := requireBucketAndKey(bucket, key); err != nil {
		return gateway.ObjectInfo{}, err
	}
	return c.gateway.GetItem(ctx, bucket, c.encoder.Encode(key), versionID)
}

// IsBucketVersioned reports whether versioning is enabled on bucket.
func (c *Client) IsBucketVersioned(ctx context.Context, bucket string) (bool, error) {
	if err := requireBucket(bucket); err != nil {
		return false, err
	}
	return c.gateway.IsVersioned(ctx, bucket)
}

// UploadInput describes an upload.
type UploadInput struct {
	Bucket string
	Key    string
	Body   io.Reader
	// Size of Body in bytes, or -1 if unknown.
	Size        int64
	ContentType string
	// StorageClass is one of StorageClasses. Empty uses the bucket default.
	StorageClass string
	Metadata     map[string]string
	// CheckBucket creates the bucket first if it does not exist.
	CheckBucket bool
}

// UploadItem uploads an object. Uploads with the default storage class are
// added to the key index; others are not, since archived objects cannot be
// read back directly.
func (c *Client) UploadItem(ctx context.Context, in UploadInput) (gateway.PutResult, error) {
	if err := requireBucket(in.Bucket); err != nil {
		return gateway.PutResult{}, err
	}
	if err := ValidateObjectName(in.Key); err != nil {
		return gateway.PutResult{}, err
	}
	if in.StorageClass != "" {
		if err := ValidateStorageClass(in.StorageClass); err != nil {
			return gateway.PutResult{}, err
		}
	}

	if in.CheckBucket || c.autoCreateBucket {
		if err := c.CreateBucketIfNotExists(ctx, in.Bucket); err != nil {
			return gateway.PutResult{}, err
		}
	}

	meta := make(map[string]string, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta[MetadataOriginalName] = path.Base(in.Key)

	transportKey := c.encoder.Encode(in.Key)
	res, err := c.gateway.PutObject(ctx, gateway.PutInput{
		Bucket:       in.Bucket,
		Key:          transportKey,
		Body:         in.Body,
		Size:         in.Size,
		ContentType:  in.ContentType,
		StorageClass: in.StorageClass,
		Metadata:     meta,
	})
	if err != nil {
		return gateway.PutResult{}, err
	}

	if in.StorageClass == "" {
		c.index.Add(ctx, in.Bucket, transportKey, res.VersionID, c.ttl)
	}

	c.logger.WithOperation("upload").WithBucket(in.Bucket).
		Info(ctx, "item uploaded", "key", in.Key, "version", res.VersionID)
	return res, nil
}

// RestoreInput describes a restore of an archived object.
type RestoreInput struct {
	Bucket    string
	Key       string
	VersionID string
	// Days the restored copy stays available. Defaults to DefaultRestoreDays.
	Days int
	// Tier is one of RestoreTiers. Defaults to DefaultRestoreTier.
	Tier string
}

// RestoreItem requests a temporary restore of an archived object.
func (c *Client) RestoreItem(ctx context.Context, in RestoreInput) error {
	if err := requireBucketAndKey(in.Bucket, in.Key); err != nil {
		return err
	}

	days := in.Days
	switch {
	case days == 0:
		days = DefaultRestoreDays
	case days < 0:
		return errors.Newf(errors.CodeInvalidInput, "restore days must be positive, got %d", days)
	}

	tier := in.Tier
	if tier == "" {
		tier = DefaultRestoreTier
	}
	if err := ValidateRestoreTier(tier); err != nil {
		return err
	}

	err := c.gateway.RestoreObject(ctx, gateway.RestoreInput{
		Bucket:    in.Bucket,
		Key:       c.encoder.Encode(in.Key),
		VersionID: in.VersionID,
		Days:      days,
		Tier:      tier,
	})
	if err != nil {
		return err
	}

	c.logger.WithOperation("restore").WithBucket(in.Bucket).
		Info(ctx, "restore requested", "key", in.Key, "days", days, "tier", tier)
	return nil
}

// GetPublicLink returns a presigned GET URL for key. A non-positive expires
// uses DefaultLinkExpiry.
func (c *Client) GetPublicLink(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	if err := requireBucketAndKey(bucket, key); err != nil {
		return "", err
	}
	if expires <= 0 {
		expires = DefaultLinkExpiry
	}

	u, err := c.gateway.PresignURL(ctx, bucket, c.encoder.Encode(key), expires)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// DeleteItem deletes an object and drops it from the index. With a
// versionID only that version is removed.
func (c *Client) DeleteItem(ctx context.Context, bucket, key, versionID string) error {
	if err := requireBucketAndKey(bucket, key); err != nil {
		return err
	}

	transportKey := c.encoder.Encode(key)
	if err := c.gateway.DeleteObject(ctx, bucket, transportKey, versionID); err != nil {
		return err
	}

	if versionID != "" {
		c.index.RemoveVersion(ctx, bucket, transportKey, versionID)
	} else {
		c.index.Remove(ctx, bucket, transportKey)
	}

	c.logger.WithOperation("delete").WithBucket(bucket).
		Info(ctx, "item deleted", "key", key, "version", versionID)
	return nil
}

// DeleteBucket deletes an empty bucket and its index.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) error {
	if err := requireBucket(bucket); err != nil {
		return err
	}
	if err := c.gateway.DeleteBucket(ctx, bucket); err != nil {
		return err
	}
	c.index.Flush(ctx, bucket)

	c.logger.WithOperation("delete_bucket").WithBucket(bucket).Info(ctx, "bucket deleted")
	return nil
}

// FlushCache drops the index of bucket.
func (c *Client) FlushCache(ctx context.Context, bucket string) error {
	if err := requireBucket(bucket); err != nil {
		return err
	}
	c.index.Flush(ctx, bucket)
	return nil
}

// CreateBucketIfNotExists creates bucket unless it already exists.
func (c *Client) CreateBucketIfNotExists(ctx context.Context, bucket string) error {
	if err := requireBucket(bucket); err != nil {
		return err
	}

	exists, err := c.gateway.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = c.gateway.CreateBucket(ctx, bucket)
	if err != nil && !errors.HasCode(err, errors.CodeAlreadyExists) {
		return err
	}

	c.logger.WithOperation("create_bucket").WithBucket(bucket).Info(ctx, "bucket created")
	return nil
}
