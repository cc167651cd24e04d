package keyenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	var enc Encoder = Identity{}
	assert.Equal(t, "a/b.txt", enc.Encode("a/b.txt"))

	got, err := enc.Decode("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", got)
}

func TestHex_RoundTrip(t *testing.T) {
	keys := []string{
		"[en-GB][2] hello world",
		"仿宋人笔意.txt",
		"/usr/path/to/[en-GB][2] hello world",
		"/usr/path/to/仿宋人笔意.txt",
		"dir/",
		"archive.tar.gz",
		".gitignore",
		"",
	}

	enc := Hex{}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			got, err := enc.Decode(enc.Encode(key))
			require.NoError(t, err)
			assert.Equal(t, key, got)
		})
	}
}

func TestHex_PreservesSeparators(t *testing.T) {
	enc := Hex{}
	assert.Equal(t, "61/62.txt", enc.Encode("a/b.txt"))
	assert.Equal(t, "61/", enc.Encode("a/"))
}

func TestHex_CustomSeparator(t *testing.T) {
	enc := Hex{Separator: ":"}
	assert.Equal(t, "61:62", enc.Encode("a:b"))
}

func TestHex_DecodeInvalid(t *testing.T) {
	_, err := Hex{}.Decode("zz/61")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 0")
}

func TestHex_KeepsExtension(t *testing.T) {
	enc := Hex{}
	assert.Equal(t, "70686f746f73/636174.jpg", enc.Encode("photos/cat.jpg"))
	assert.Equal(t, "617263686976652e746172.gz", enc.Encode("archive.tar.gz"))
	assert.Equal(t, "70686f746f73", enc.Encode("photos"))
}
