package keyindex

import (
	"encoding/hex"
	"path"
	"strings"

	"github.com/jmgilman/go/bucketcache/keycodec"
	"github.com/jmgilman/go/bucketcache/pathprefix"
	"github.com/zeebo/blake3"
)

// bucketIDPrefix namespaces index entries inside a shared store.
const bucketIDPrefix = "bucketcache:idx:"

// Record is one known key, optionally pinned to a version.
type Record struct {
	Key       string
	VersionID string
}

// Compound returns the packed form stored in the blob.
func (r Record) Compound() string {
	return keycodec.Encode(r.Key, r.VersionID)
}

// IsDirectoryMarker reports whether the record names a directory.
func (r Record) IsDirectoryMarker() bool {
	return pathprefix.IsDirectoryMarker(r.Key)
}

func recordFromCompound(compound string) Record {
	k := keycodec.Parse(compound)
	return Record{Key: k.Name, VersionID: k.VersionID}
}

// BucketID returns the store key holding bucket's index.
func BucketID(bucket string) string {
	sum := blake3.Sum256([]byte(bucket))
	return bucketIDPrefix + hex.EncodeToString(sum[:])
}

// NormalizeKey turns a key without a file extension into a directory marker.
// Keys already ending in "/" are returned unchanged.
func NormalizeKey(key string) string {
	if key == "" || strings.HasSuffix(key, pathprefix.Separator) {
		return key
	}
	if path.Ext(key) == "" {
		return key + pathprefix.Separator
	}
	return key
}
