package cachestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// boltHeaderSize is the length of the expiry prefix on every stored value.
const boltHeaderSize = 8

var defaultBoltBucket = []byte("bucketcache")

// BoltConfig configures a Bolt store.
type BoltConfig struct {
	// Path is the database file. Required.
	Path string
	// Bucket is the bbolt bucket holding entries. Defaults to "bucketcache".
	Bucket string
	// Timeout bounds how long Open waits for the file lock. Defaults to 1s.
	Timeout time.Duration
	// NoSync disables fsync per transaction. Only for tests.
	NoSync bool
}

func (c *BoltConfig) validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// Bolt is a Store persisted in a local bbolt database. Each value is stored
// with an 8-byte big-endian expiry (unix nanoseconds, 0 for none) prefix.
type Bolt struct {
	db     *bbolt.DB
	bucket []byte
	now    func() time.Time
}

// OpenBolt opens or creates the database at cfg.Path.
func OpenBolt(cfg BoltConfig) (*Bolt, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid bolt config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second
	}
	bucket := defaultBoltBucket
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating bolt directory: %w", err)
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{
		Timeout: timeout,
		NoSync:  cfg.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
	}

	return &Bolt{db: db, bucket: bucket, now: time.Now}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Get implements Store. Expired values stay on disk until overwritten or
// deleted.
func (b *Bolt) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(b.bucket).Get([]byte(key))
		payload, ok := b.decode(raw)
		if !ok {
			return nil
		}
		out = bytes.Clone(payload)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt get %q: %w", key, err)
	}
	return out, found, nil
}

// Set implements Store.
func (b *Bolt) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), b.encode(value, ttl))
	})
	if err != nil {
		return fmt.Errorf("bolt set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (b *Bolt) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt delete %q: %w", key, err)
	}
	return nil
}

// CompareAndSwap implements Swapper inside a single read-write transaction.
func (b *Bolt) CompareAndSwap(_ context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	swapped := false
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		current, ok := b.decode(bkt.Get([]byte(key)))
		switch {
		case prev == nil && ok:
			return nil
		case prev != nil && (!ok || !bytes.Equal(current, prev)):
			return nil
		}
		swapped = true
		return bkt.Put([]byte(key), b.encode(next, ttl))
	})
	if err != nil {
		return false, fmt.Errorf("bolt compare-and-swap %q: %w", key, err)
	}
	return swapped, nil
}

func (b *Bolt) encode(value []byte, ttl time.Duration) []byte {
	var expiry int64
	if ttl > 0 {
		expiry = b.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, boltHeaderSize+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expiry))
	copy(buf[boltHeaderSize:], value)
	return buf
}

// decode strips the expiry header, reporting false for missing, truncated or
// expired values.
func (b *Bolt) decode(raw []byte) ([]byte, bool) {
	if len(raw) < boltHeaderSize {
		return nil, false
	}
	expiry := int64(binary.BigEndian.Uint64(raw[:boltHeaderSize]))
	if expiry != 0 && b.now().UnixNano() > expiry {
		return nil, false
	}
	return raw[boltHeaderSize:], true
}

var (
	_ Store   = (*Bolt)(nil)
	_ Swapper = (*Bolt)(nil)
)
