// Package pathprefix simulates hierarchical listing over a flat key namespace.
//
// Keys ending in Separator are directory markers. Every other key belongs to
// the directory formed by everything up to and including its last separator.
package pathprefix

import "strings"

// Separator is the path separator used by object keys.
const Separator = "/"

// IsDirectoryMarker reports whether key denotes a simulated directory.
func IsDirectoryMarker(key string) bool {
	return strings.HasSuffix(key, Separator)
}

// Dir returns the simulated directory that key belongs to. Directory markers
// are their own directory; root-level keys belong to "".
func Dir(key string) string {
	if IsDirectoryMarker(key) {
		return key
	}
	i := strings.LastIndex(key, Separator)
	if i < 0 {
		return ""
	}
	return key[:i+len(Separator)]
}

// EnsureTrailingSeparator appends Separator to prefix unless it is empty or
// already ends with one.
func EnsureTrailingSeparator(prefix string) string {
	if prefix == "" || IsDirectoryMarker(prefix) {
		return prefix
	}
	return prefix + Separator
}

// GroupByDirectory groups leaf keys under their directory, preserving input
// order within each group. A directory marker registers its directory without
// becoming a member of it, so a directory holding only its marker maps to an
// empty group.
func GroupByDirectory(keys []string) map[string][]string {
	return GroupByDirectoryFunc(keys, identity)
}

// GroupByDirectoryFunc is GroupByDirectory over arbitrary items. keyOf returns
// the object key an item is filed under.
func GroupByDirectoryFunc[T any](items []T, keyOf func(T) string) map[string][]T {
	groups := make(map[string][]T)
	for _, item := range items {
		key := keyOf(item)
		dir := Dir(key)
		if IsDirectoryMarker(key) {
			if _, ok := groups[dir]; !ok {
				groups[dir] = []T{}
			}
			continue
		}
		groups[dir] = append(groups[dir], item)
	}
	return groups
}

// Resolve returns the keys in the directory named by prefix. When no such
// directory is known the full, ungrouped key collection is returned instead,
// which widens the result to everything known.
func Resolve(keys []string, prefix string) []string {
	return NewResolver(keys).Resolve(prefix)
}

// Resolver answers repeated prefix queries over one collection.
type Resolver[T any] struct {
	items  []T
	groups map[string][]T
}

// NewResolver groups keys once for repeated queries.
func NewResolver(keys []string) *Resolver[string] {
	return NewResolverFunc(keys, identity)
}

// NewResolverFunc groups items by the key keyOf returns for each.
func NewResolverFunc[T any](items []T, keyOf func(T) string) *Resolver[T] {
	return &Resolver[T]{
		items:  items,
		groups: GroupByDirectoryFunc(items, keyOf),
	}
}

// Resolve behaves like the package-level Resolve.
func (r *Resolver[T]) Resolve(prefix string) []T {
	src, ok := r.groups[prefix]
	if !ok {
		src = r.items
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

// Has reports whether prefix names a known directory.
func (r *Resolver[T]) Has(prefix string) bool {
	_, ok := r.groups[prefix]
	return ok
}

func identity(s string) string { return s }
