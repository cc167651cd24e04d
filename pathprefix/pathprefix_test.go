package pathprefix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDir(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"a/b.txt", "a/"},
		{"a/", "a/"},
		{"a/b/c.txt", "a/b/"},
		{"a/b/", "a/b/"},
		{"root.txt", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Dir(tt.key))
		})
	}
}

func TestEnsureTrailingSeparator(t *testing.T) {
	assert.Equal(t, "", EnsureTrailingSeparator(""))
	assert.Equal(t, "a/", EnsureTrailingSeparator("a"))
	assert.Equal(t, "a/", EnsureTrailingSeparator("a/"))
}

func TestGroupByDirectory(t *testing.T) {
	groups := GroupByDirectory([]string{"a/b.txt", "a/", "c/d.txt", "a/e.txt", "x/", "top.txt"})

	assert.Equal(t, []string{"a/b.txt", "a/e.txt"}, groups["a/"])
	assert.Equal(t, []string{"c/d.txt"}, groups["c/"])
	assert.Equal(t, []string{"top.txt"}, groups[""])

	empty, ok := groups["x/"]
	assert.True(t, ok)
	assert.Empty(t, empty)
}

func TestResolve(t *testing.T) {
	keys := []string{"a/b.txt", "a/", "c/d.txt"}

	t.Run("known prefix", func(t *testing.T) {
		assert.Equal(t, []string{"a/b.txt"}, Resolve(keys, "a/"))
	})

	t.Run("unknown prefix falls back to everything", func(t *testing.T) {
		assert.Equal(t, keys, Resolve(keys, "z/"))
	})

	t.Run("nested directories are not flattened", func(t *testing.T) {
		got := Resolve([]string{"a/b.txt", "a/sub/c.txt"}, "a/")
		assert.Equal(t, []string{"a/b.txt"}, got)
	})

	t.Run("empty collection", func(t *testing.T) {
		assert.Empty(t, Resolve(nil, "a/"))
	})
}

func TestResolver(t *testing.T) {
	keys := []string{"a/b.txt", "a/", "c/d.txt", "x/"}
	r := NewResolver(keys)

	assert.True(t, r.Has("a/"))
	assert.True(t, r.Has("x/"))
	assert.False(t, r.Has("z/"))
	assert.Empty(t, r.Resolve("x/"))

	// Results are copies.
	got := r.Resolve("a/")
	got[0] = "mutated"
	assert.Equal(t, []string{"a/b.txt"}, r.Resolve("a/"))
}

type versioned struct {
	key     string
	version string
}

func TestResolverFunc_GroupsByItemKey(t *testing.T) {
	items := []versioned{
		{"a/b.txt", "3/L4kqtJlcpXroDTDmJ+rmSpXd3dIbrHY"},
		{"a/c.txt", "plain"},
		{"a/", ""},
		{"d/e.txt", "x/y/z"},
	}
	r := NewResolverFunc(items, func(v versioned) string { return v.key })

	assert.True(t, r.Has("a/"))
	assert.True(t, r.Has("d/"))
	assert.False(t, r.Has("a/b.txt<VERSION_ID:3/"))
	assert.Equal(t, []versioned{items[0], items[1]}, r.Resolve("a/"))
	assert.Equal(t, items, r.Resolve("z/"))
}
