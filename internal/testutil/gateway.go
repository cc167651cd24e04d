// Package testutil provides in-memory fakes for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/gateway"
)

// Gateway operation names, as recorded by Gateway.Calls.
const (
	OpList          = "List"
	OpListVersions  = "ListVersions"
	OpGetItem       = "GetItem"
	OpIsVersioned   = "IsVersioned"
	OpPutObject     = "PutObject"
	OpRestoreObject = "RestoreObject"
	OpDeleteObject  = "DeleteObject"
	OpBucketExists  = "BucketExists"
	OpCreateBucket  = "CreateBucket"
	OpDeleteBucket  = "DeleteBucket"
	OpPresignURL    = "PresignURL"
)

// Call is one recorded gateway invocation.
type Call struct {
	Op        string
	Bucket    string
	Key       string
	VersionID string
}

type object struct {
	info     gateway.ObjectInfo
	isLatest bool
}

type bucket struct {
	versioned bool
	objects   []*object
}

// Gateway is an in-memory gateway.Gateway. It records every call and can be
// told to fail specific operations.
type Gateway struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	calls    []Call
	failures map[string]error
	failKeys map[string]error
	seq      int
	delay    time.Duration
	restores []gateway.RestoreInput
}

var _ gateway.Gateway = (*Gateway)(nil)

// NewGateway returns an empty fake.
func NewGateway() *Gateway {
	return &Gateway{
		buckets:  make(map[string]*bucket),
		failures: make(map[string]error),
		failKeys: make(map[string]error),
	}
}

// AddBucket creates a bucket.
func (g *Gateway) AddBucket(name string, versioned bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buckets[name] = &bucket{versioned: versioned}
}

// Seed stores objects with the given keys and returns their version IDs
// (empty for unversioned buckets). The bucket is created if missing.
func (g *Gateway) Seed(bucketName string, keys ...string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.buckets[bucketName]
	if !ok {
		b = &bucket{}
		g.buckets[bucketName] = b
	}

	versions := make([]string, len(keys))
	for i, k := range keys {
		versions[i] = g.putLocked(bucketName, b, gateway.PutInput{Key: k, Size: int64(len(k))}).VersionID
	}
	return versions
}

// FailOn makes every call to op return err. A nil err clears the failure.
func (g *Gateway) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// FailGetItem makes GetItem fail for key only.
func (g *Gateway) FailGetItem(key string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failKeys[key] = err
}

// SetDelay makes GetItem sleep before answering.
func (g *Gateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

// Calls returns a copy of the recorded calls.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallCount returns how many times op was called.
func (g *Gateway) CallCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Restores returns the restore requests received.
func (g *Gateway) Restores() []gateway.RestoreInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.RestoreInput(nil), g.restores...)
}

// record logs a call and returns the injected failure for op, if any.
func (g *Gateway) record(c Call) error {
	g.calls = append(g.calls, c)
	return g.failures[c.Op]
}

func notFound(what, name string) error {
	return errors.WithStatusCode(errors.Newf(errors.CodeNotFound, "%s %q not found", what, name), 404)
}

func (g *Gateway) bucketLocked(name string) (*bucket, error) {
	b, ok := g.buckets[name]
	if !ok {
		return nil, notFound("bucket", name)
	}
	return b, nil
}

func (g *Gateway) putLocked(bucketName string, b *bucket, in gateway.PutInput) gateway.PutResult {
	g.seq++
	versionID := ""
	if b.versioned {
		versionID = fmt.Sprintf("v%d", g.seq)
		for _, o := range b.objects {
			if o.info.Key == in.Key {
				o.isLatest = false
			}
		}
	} else {
		kept := b.objects[:0]
		for _, o := range b.objects {
			if o.info.Key != in.Key {
				kept = append(kept, o)
			}
		}
		b.objects = kept
	}

	size := in.Size
	if size < 0 {
		size = 0
	}

	b.objects = append(b.objects, &object{
		isLatest: true,
		info: gateway.ObjectInfo{
			Bucket:       bucketName,
			Key:          in.Key,
			VersionID:    versionID,
			Size:         size,
			LastModified: time.Unix(int64(g.seq), 0).UTC(),
			ETag:         fmt.Sprintf("etag-%d", g.seq),
			ContentType:  in.ContentType,
			StorageClass: in.StorageClass,
			Metadata:     in.Metadata,
		},
	})

	return gateway.PutResult{Key: in.Key, ETag: fmt.Sprintf("etag-%d", g.seq), VersionID: versionID, Size: size}
}

// sorted returns objects ordered by key, newest version first.
func (b *bucket) sorted() []*object {
	out := append([]*object(nil), b.objects...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].info.Key != out[j].info.Key {
			return out[i].info.Key < out[j].info.Key
		}
		return out[i].info.LastModified.After(out[j].info.LastModified)
	})
	return out
}

// visible applies prefix and delimiter rules. It returns the matching keys
// and whether each one is a rolled-up common prefix.
func visible(key string, opts gateway.ListOptions) (string, bool) {
	if !strings.HasPrefix(key, opts.Prefix) {
		return "", false
	}
	if opts.Delimiter == "" {
		return key, true
	}
	rest := key[len(opts.Prefix):]
	if i := strings.Index(rest, opts.Delimiter); i >= 0 && i < len(rest)-1 {
		return opts.Prefix + rest[:i+1], true
	}
	return key, true
}

// List implements gateway.Gateway.
func (g *Gateway) List(_ context.Context, bucketName string, opts gateway.ListOptions) ([]gateway.ObjectSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpList, Bucket: bucketName, Key: opts.Prefix}); err != nil {
		return nil, err
	}
	b, err := g.bucketLocked(bucketName)
	if err != nil {
		return nil, err
	}

	var out []gateway.ObjectSummary
	seen := make(map[string]bool)
	for _, o := range b.sorted() {
		if !o.isLatest {
			continue
		}
		key, ok := visible(o.info.Key, opts)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, gateway.ObjectSummary{
			Key:          key,
			Size:         o.info.Size,
			LastModified: o.info.LastModified,
			ETag:         o.info.ETag,
		})
	}
	return out, nil
}

// ListVersions implements gateway.Gateway.
func (g *Gateway) ListVersions(_ context.Context, bucketName string, opts gateway.ListOptions) ([]gateway.ObjectVersion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpListVersions, Bucket: bucketName, Key: opts.Prefix}); err != nil {
		return nil, err
	}
	b, err := g.bucketLocked(bucketName)
	if err != nil {
		return nil, err
	}

	var out []gateway.ObjectVersion
	for _, o := range b.sorted() {
		if _, ok := visible(o.info.Key, gateway.ListOptions{Prefix: opts.Prefix}); !ok {
			continue
		}
		out = append(out, gateway.ObjectVersion{
			Key:          o.info.Key,
			VersionID:    o.info.VersionID,
			IsLatest:     o.isLatest,
			Size:         o.info.Size,
			LastModified: o.info.LastModified,
		})
	}
	return out, nil
}

// GetItem implements gateway.Gateway.
func (g *Gateway) GetItem(_ context.Context, bucketName, key, versionID string) (gateway.ObjectInfo, error) {
	g.mu.Lock()
	delay := g.delay
	g.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpGetItem, Bucket: bucketName, Key: key, VersionID: versionID}); err != nil {
		return gateway.ObjectInfo{}, err
	}
	if err, ok := g.failKeys[key]; ok {
		return gateway.ObjectInfo{}, err
	}
	b, err := g.bucketLocked(bucketName)
	if err != nil {
		return gateway.ObjectInfo{}, err
	}

	for _, o := range b.objects {
		if o.info.Key != key {
			continue
		}
		if (versionID == "" && o.isLatest) || (versionID != "" && o.info.VersionID == versionID) {
			return o.info, nil
		}
	}
	return gateway.ObjectInfo{}, notFound("key", key)
}

// IsVersioned implements gateway.Gateway.
func (g *Gateway) IsVersioned(_ context.Context, bucketName string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpIsVersioned, Bucket: bucketName}); err != nil {
		return false, err
	}
	b, err := g.bucketLocked(bucketName)
	if err != nil {
		return false, err
	}
	return b.versioned, nil
}

// PutObject implements gateway.Gateway.
func (g *Gateway) PutObject(_ context.Context, in gateway.PutInput) (gateway.PutResult, error) {
	if in.Body != nil {
		n, err := io.Copy(io.Discard, in.Body)
		if err != nil {
			return gateway.PutResult{}, err
		}
		if in.Size < 0 {
			in.Size = n
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpPutObject, Bucket: in.Bucket, Key: in.Key}); err != nil {
		return gateway.PutResult{}, err
	}
	b, err := g.bucketLocked(in.Bucket)
	if err != nil {
		return gateway.PutResult{}, err
	}
	return g.putLocked(in.Bucket, b, in), nil
}

// RestoreObject implements gateway.Gateway.
func (g *Gateway) RestoreObject(_ context.Context, in gateway.RestoreInput) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpRestoreObject, Bucket: in.Bucket, Key: in.Key, VersionID: in.VersionID}); err != nil {
		return err
	}
	g.restores = append(g.restores, in)
	return nil
}

// DeleteObject implements gateway.Gateway.
func (g *Gateway) DeleteObject(_ context.Context, bucketName, key, versionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpDeleteObject, Bucket: bucketName, Key: key, VersionID: versionID}); err != nil {
		return err
	}
	b, err := g.bucketLocked(bucketName)
	if err != nil {
		return err
	}

	kept := b.objects[:0]
	for _, o := range b.objects {
		if o.info.Key == key && (versionID == "" || o.info.VersionID == versionID) {
			continue
		}
		kept = append(kept, o)
	}
	b.objects = kept
	return nil
}

// BucketExists implements gateway.Gateway.
func (g *Gateway) BucketExists(_ context.Context, bucketName string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpBucketExists, Bucket: bucketName}); err != nil {
		return false, err
	}
	_, ok := g.buckets[bucketName]
	return ok, nil
}

// CreateBucket implements gateway.Gateway.
func (g *Gateway) CreateBucket(_ context.Context, bucketName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpCreateBucket, Bucket: bucketName}); err != nil {
		return err
	}
	if _, ok := g.buckets[bucketName]; ok {
		return errors.WithStatusCode(errors.Newf(errors.CodeAlreadyExists, "bucket %q already exists", bucketName), 409)
	}
	g.buckets[bucketName] = &bucket{}
	return nil
}

// DeleteBucket implements gateway.Gateway.
func (g *Gateway) DeleteBucket(_ context.Context, bucketName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpDeleteBucket, Bucket: bucketName}); err != nil {
		return err
	}
	b, err := g.bucketLocked(bucketName)
	if err != nil {
		return err
	}
	if len(b.objects) > 0 {
		return errors.WithStatusCode(errors.Newf(errors.CodeConflict, "bucket %q is not empty", bucketName), 409)
	}
	delete(g.buckets, bucketName)
	return nil
}

// PresignURL implements gateway.Gateway.
func (g *Gateway) PresignURL(_ context.Context, bucketName, key string, expires time.Duration) (*url.URL, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record(Call{Op: OpPresignURL, Bucket: bucketName, Key: key}); err != nil {
		return nil, err
	}
	return &url.URL{
		Scheme:   "https",
		Host:     "fake.local",
		Path:     "/" + bucketName + "/" + key,
		RawQuery: url.Values{"X-Amz-Expires": {fmt.Sprintf("%d", int(expires.Seconds()))}}.Encode(),
	}, nil
}
