// Package gateway defines the operations bucketcache needs from a remote
// object store. The minio subpackage implements them for MinIO and other
// S3-compatible services.
//
// Every failure is an errors.PlatformError carrying the HTTP status code the
// store returned, when there was one.
package gateway

import (
	"context"
	"io"
	"net/url"
	"time"
)

// ObjectSummary is one entry of a plain listing.
type ObjectSummary struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectVersion is one entry of a version listing.
type ObjectVersion struct {
	Key            string
	VersionID      string
	IsLatest       bool
	IsDeleteMarker bool
	Size           int64
	LastModified   time.Time
}

// ObjectInfo is the full metadata of a single object version.
type ObjectInfo struct {
	Bucket       string
	Key          string
	VersionID    string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
	StorageClass string
	Metadata     map[string]string
	Restore      *RestoreStatus
}

// RestoreStatus describes an archived object's restore state.
type RestoreStatus struct {
	OngoingRestore bool
	ExpiryTime     time.Time
}

// ListOptions narrows a listing.
type ListOptions struct {
	// Prefix limits results to keys starting with it.
	Prefix string
	// Delimiter groups keys below the first delimiter after Prefix. Empty
	// lists recursively.
	Delimiter string
}

// PutInput describes an upload.
type PutInput struct {
	Bucket       string
	Key          string
	Body         io.Reader
	Size         int64
	ContentType  string
	StorageClass string
	Metadata     map[string]string
}

// PutResult describes a completed upload.
type PutResult struct {
	Key       string
	ETag      string
	VersionID string
	Size      int64
}

// RestoreInput describes a restore request for an archived object.
type RestoreInput struct {
	Bucket    string
	Key       string
	VersionID string
	Days      int
	Tier      string
}

// Gateway is the remote object store.
type Gateway interface {
	// List returns every object under opts, following pagination.
	List(ctx context.Context, bucket string, opts ListOptions) ([]ObjectSummary, error)

	// ListVersions returns every object version under opts.
	ListVersions(ctx context.Context, bucket string, opts ListOptions) ([]ObjectVersion, error)

	// GetItem returns the metadata for key. An empty versionID selects the
	// latest version.
	GetItem(ctx context.Context, bucket, key, versionID string) (ObjectInfo, error)

	// IsVersioned reports whether versioning is enabled on bucket.
	IsVersioned(ctx context.Context, bucket string) (bool, error)

	// PutObject uploads an object.
	PutObject(ctx context.Context, in PutInput) (PutResult, error)

	// RestoreObject requests a temporary restore of an archived object.
	RestoreObject(ctx context.Context, in RestoreInput) error

	// DeleteObject removes an object version. An empty versionID removes the
	// latest version.
	DeleteObject(ctx context.Context, bucket, key, versionID string) error

	// BucketExists reports whether bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket creates bucket.
	CreateBucket(ctx context.Context, bucket string) error

	// DeleteBucket removes an empty bucket.
	DeleteBucket(ctx context.Context, bucket string) error

	// PresignURL returns a time-limited GET URL for key.
	PresignURL(ctx context.Context, bucket, key string, expires time.Duration) (*url.URL, error)
}
