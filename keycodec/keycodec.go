// Package keycodec packs an object key and an optional version identifier
// into a single cache-safe string, and unpacks it again.
//
// The packed form is "{key}<VERSION_ID:{version}>". It is persisted in key
// indexes and returned as listing identifiers, so the marker format must not
// change without a migration.
package keycodec

import "strings"

const (
	// VersionMarker opens the version section of a compound key.
	VersionMarker = "<VERSION_ID:"

	// VersionClose terminates the version section of a compound key.
	VersionClose = ">"
)

// Key is an object key with an optional version identifier.
type Key struct {
	Name      string
	VersionID string
}

// HasVersion reports whether the key carries a version identifier.
func (k Key) HasVersion() bool {
	return k.VersionID != ""
}

// String returns the compound form of the key.
func (k Key) String() string {
	return Encode(k.Name, k.VersionID)
}

// Parse decodes a compound key into a Key.
func Parse(compound string) Key {
	name, version := Decode(compound)
	return Key{Name: name, VersionID: version}
}

// Encode returns the compound form of key and versionID. An empty versionID
// returns key unchanged.
func Encode(key, versionID string) string {
	if versionID == "" {
		return key
	}
	return key + VersionMarker + versionID + VersionClose
}

// Decode splits a compound key on the first version marker. Strings without a
// marker are returned as the key with an empty version.
func Decode(compound string) (key, versionID string) {
	before, after, found := strings.Cut(compound, VersionMarker)
	if !found {
		return compound, ""
	}
	return before, strings.TrimSuffix(after, VersionClose)
}

// IsCompound reports whether s contains a version marker.
func IsCompound(s string) bool {
	return strings.Contains(s, VersionMarker)
}
