// Package keyenc transforms object keys at the boundary with the remote store.
//
// An Encoder is applied to every key written to the remote store and the
// inverse is applied to every key read back, so callers and the key index
// work with the same logical keys regardless of how they are stored remotely.
package keyenc

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Encoder converts between logical keys and transport keys.
type Encoder interface {
	// Encode returns the transport form of key.
	Encode(key string) string
	// Decode returns the logical key for a transport key.
	Decode(transportKey string) (string, error)
}

// Identity leaves keys unchanged.
type Identity struct{}

// Encode returns key.
func (Identity) Encode(key string) string { return key }

// Decode returns transportKey.
func (Identity) Decode(transportKey string) (string, error) { return transportKey, nil }

// Hex hex-encodes each path segment independently, keeping separators, so
// keys with characters that are unsafe for some S3-compatible stores survive
// the round trip and still list hierarchically. A segment's extension (from
// its last ".") stays in clear so encoded files remain distinguishable from
// directories.
type Hex struct {
	// Separator splits segments. Defaults to "/".
	Separator string
}

func (h Hex) separator() string {
	if h.Separator == "" {
		return "/"
	}
	return h.Separator
}

// Encode hex-encodes every segment of key.
func (h Hex) Encode(key string) string {
	segments := strings.Split(key, h.separator())
	for i, segment := range segments {
		stem, ext := splitExt(segment)
		segments[i] = hex.EncodeToString([]byte(stem)) + ext
	}
	return strings.Join(segments, h.separator())
}

// Decode reverses Encode.
func (h Hex) Decode(transportKey string) (string, error) {
	segments := strings.Split(transportKey, h.separator())
	for i, segment := range segments {
		stem, ext := splitExt(segment)
		raw, err := hex.DecodeString(stem)
		if err != nil {
			return "", fmt.Errorf("decoding segment %d of %q: %w", i, transportKey, err)
		}
		segments[i] = string(raw) + ext
	}
	return strings.Join(segments, h.separator()), nil
}

// splitExt splits segment before its last ".". Hex output never contains a
// dot, so the split is unambiguous on both sides.
func splitExt(segment string) (stem, ext string) {
	if i := strings.LastIndex(segment, "."); i >= 0 {
		return segment[:i], segment[i:]
	}
	return segment, ""
}

var (
	_ Encoder = Identity{}
	_ Encoder = Hex{}
)
