package minio

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/gateway"
	"github.com/jmgilman/go/bucketcache/gateway/minio/internal/errs"
	"github.com/jmgilman/go/bucketcache/logging"
	"github.com/jmgilman/go/bucketcache/metrics"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Operation names used for logging and metrics.
const (
	opList          = "list"
	opListVersions  = "list_versions"
	opGetItem       = "get_item"
	opIsVersioned   = "is_versioned"
	opPutObject     = "put_object"
	opRestoreObject = "restore_object"
	opDeleteObject  = "delete_object"
	opBucketExists  = "bucket_exists"
	opCreateBucket  = "create_bucket"
	opDeleteBucket  = "delete_bucket"
	opPresignURL    = "presign_url"
)

// Gateway implements gateway.Gateway on top of minio-go.
type Gateway struct {
	client  *minio.Client
	region  string
	logger  *logging.Logger
	metrics *metrics.Metrics
}

var _ gateway.Gateway = (*Gateway)(nil)

// New creates a Gateway.
// Returns error if configuration is invalid or the client cannot be built.
func New(cfg Config) (*Gateway, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid minio config")
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to create minio client")
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Gateway{
		client:  client,
		region:  cfg.Region,
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Client returns the underlying MinIO client.
func (g *Gateway) Client() *minio.Client {
	return g.client
}

// List returns every object under opts. Only the "/" delimiter is supported;
// with it, common prefixes are returned as directory-marker keys.
func (g *Gateway) List(ctx context.Context, bucket string, opts gateway.ListOptions) ([]gateway.ObjectSummary, error) {
	defer g.observe(ctx, opList, bucket, time.Now())

	listOpts, err := toListOptions(opts)
	if err != nil {
		return nil, err
	}

	var out []gateway.ObjectSummary
	for object := range g.client.ListObjects(ctx, bucket, listOpts) {
		if object.Err != nil {
			return nil, errs.Translate(object.Err, opList, bucket, opts.Prefix)
		}
		out = append(out, gateway.ObjectSummary{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ETag:         object.ETag,
		})
	}

	return out, nil
}

// ListVersions returns every object version under opts. Delete markers are
// reported with IsDeleteMarker set.
func (g *Gateway) ListVersions(ctx context.Context, bucket string, opts gateway.ListOptions) ([]gateway.ObjectVersion, error) {
	defer g.observe(ctx, opListVersions, bucket, time.Now())

	listOpts, err := toListOptions(opts)
	if err != nil {
		return nil, err
	}
	listOpts.WithVersions = true

	var out []gateway.ObjectVersion
	for object := range g.client.ListObjects(ctx, bucket, listOpts) {
		if object.Err != nil {
			return nil, errs.Translate(object.Err, opListVersions, bucket, opts.Prefix)
		}
		out = append(out, gateway.ObjectVersion{
			Key:            object.Key,
			VersionID:      object.VersionID,
			IsLatest:       object.IsLatest,
			IsDeleteMarker: object.IsDeleteMarker,
			Size:           object.Size,
			LastModified:   object.LastModified,
		})
	}

	return out, nil
}

// GetItem returns the metadata of a single object version.
func (g *Gateway) GetItem(ctx context.Context, bucket, key, versionID string) (gateway.ObjectInfo, error) {
	defer g.observe(ctx, opGetItem, bucket, time.Now())

	info, err := g.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{VersionID: versionID})
	if err != nil {
		return gateway.ObjectInfo{}, errs.Translate(err, opGetItem, bucket, key)
	}

	return toObjectInfo(bucket, info), nil
}

// IsVersioned reports whether versioning is enabled on bucket.
func (g *Gateway) IsVersioned(ctx context.Context, bucket string) (bool, error) {
	defer g.observe(ctx, opIsVersioned, bucket, time.Now())

	cfg, err := g.client.GetBucketVersioning(ctx, bucket)
	if err != nil {
		return false, errs.Translate(err, opIsVersioned, bucket, "")
	}

	return cfg.Enabled(), nil
}

// PutObject uploads an object. A negative size streams the body.
func (g *Gateway) PutObject(ctx context.Context, in gateway.PutInput) (gateway.PutResult, error) {
	defer g.observe(ctx, opPutObject, in.Bucket, time.Now())

	body := in.Body
	if body == nil {
		body = http.NoBody
	}

	info, err := g.client.PutObject(ctx, in.Bucket, in.Key, body, in.Size, minio.PutObjectOptions{
		ContentType:  in.ContentType,
		StorageClass: in.StorageClass,
		UserMetadata: in.Metadata,
	})
	if err != nil {
		return gateway.PutResult{}, errs.Translate(err, opPutObject, in.Bucket, in.Key)
	}

	return gateway.PutResult{
		Key:       info.Key,
		ETag:      info.ETag,
		VersionID: info.VersionID,
		Size:      info.Size,
	}, nil
}

// RestoreObject requests a temporary restore of an archived object.
func (g *Gateway) RestoreObject(ctx context.Context, in gateway.RestoreInput) error {
	defer g.observe(ctx, opRestoreObject, in.Bucket, time.Now())

	req := minio.RestoreRequest{}
	req.SetDays(in.Days)
	req.SetGlacierJobParameters(minio.GlacierJobParameters{Tier: minio.TierType(in.Tier)})

	if err := g.client.RestoreObject(ctx, in.Bucket, in.Key, in.VersionID, req); err != nil {
		return errs.Translate(err, opRestoreObject, in.Bucket, in.Key)
	}

	return nil
}

// DeleteObject removes an object version.
func (g *Gateway) DeleteObject(ctx context.Context, bucket, key, versionID string) error {
	defer g.observe(ctx, opDeleteObject, bucket, time.Now())

	err := g.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{VersionID: versionID})
	if err != nil {
		return errs.Translate(err, opDeleteObject, bucket, key)
	}

	return nil
}

// BucketExists reports whether bucket exists.
func (g *Gateway) BucketExists(ctx context.Context, bucket string) (bool, error) {
	defer g.observe(ctx, opBucketExists, bucket, time.Now())

	ok, err := g.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, errs.Translate(err, opBucketExists, bucket, "")
	}

	return ok, nil
}

// CreateBucket creates bucket in the configured region.
func (g *Gateway) CreateBucket(ctx context.Context, bucket string) error {
	defer g.observe(ctx, opCreateBucket, bucket, time.Now())

	if err := g.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: g.region}); err != nil {
		return errs.Translate(err, opCreateBucket, bucket, "")
	}

	return nil
}

// DeleteBucket removes an empty bucket.
func (g *Gateway) DeleteBucket(ctx context.Context, bucket string) error {
	defer g.observe(ctx, opDeleteBucket, bucket, time.Now())

	if err := g.client.RemoveBucket(ctx, bucket); err != nil {
		return errs.Translate(err, opDeleteBucket, bucket, "")
	}

	return nil
}

// PresignURL returns a presigned GET URL for key.
func (g *Gateway) PresignURL(ctx context.Context, bucket, key string, expires time.Duration) (*url.URL, error) {
	defer g.observe(ctx, opPresignURL, bucket, time.Now())

	u, err := g.client.PresignedGetObject(ctx, bucket, key, expires, nil)
	if err != nil {
		return nil, errs.Translate(err, opPresignURL, bucket, key)
	}

	return u, nil
}

func (g *Gateway) observe(ctx context.Context, op, bucket string, start time.Time) {
	g.metrics.ObserveRemote(op, start)
	g.logger.WithOperation(op).WithBucket(bucket).WithDuration(time.Since(start)).
		Debug(ctx, "remote call complete")
}

func toListOptions(opts gateway.ListOptions) (minio.ListObjectsOptions, error) {
	switch opts.Delimiter {
	case "", "/":
	default:
		return minio.ListObjectsOptions{}, errors.Newf(errors.CodeInvalidInput,
			"unsupported delimiter %q: only \"/\" is supported", opts.Delimiter)
	}

	return minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Delimiter == "",
	}, nil
}

func toObjectInfo(bucket string, info minio.ObjectInfo) gateway.ObjectInfo {
	out := gateway.ObjectInfo{
		Bucket:       bucket,
		Key:          info.Key,
		VersionID:    info.VersionID,
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		StorageClass: info.StorageClass,
	}

	if len(info.UserMetadata) > 0 {
		out.Metadata = make(map[string]string, len(info.UserMetadata))
		for k, v := range info.UserMetadata {
			out.Metadata[k] = v
		}
	}

	if info.Restore != nil {
		out.Restore = &gateway.RestoreStatus{
			OngoingRestore: info.Restore.OngoingRestore,
			ExpiryTime:     info.Restore.ExpiryTime,
		}
	}

	return out
}
