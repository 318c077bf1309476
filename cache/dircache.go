// Package cache provides the reader's directory cache: a bounded map from
// a directory's byte offset in the archive to its decoded entries.
package cache

import (
	"github.com/golang/groupcache/lru"

	"github.com/nmatsuoka/go-quadtiles/spec"
)

// DefaultCapacity is the cache size used when a non-positive capacity is requested.
const DefaultCapacity = 20

// DirCache is an MRU-front, LIFO-on-tie cache keyed by a directory's
// archive byte offset. Get promotes the key to most-recently-used; once
// the cache holds more than its capacity, the least-recently-used key is
// evicted. It is backed by groupcache's intrusive list+map LRU, giving
// O(1) Get/Add regardless of capacity.
type DirCache struct {
	cache *lru.Cache
}

// New creates a DirCache with the given capacity, falling back to
// DefaultCapacity when capacity <= 0.
func New(capacity int) *DirCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &DirCache{cache: &lru.Cache{MaxEntries: capacity}}
}

// Get returns the decoded entries for the directory at offset, promoting
// it to most-recently-used on a hit.
func (c *DirCache) Get(offset uint64) ([]spec.Entry, bool) {
	v, ok := c.cache.Get(offset)
	if !ok {
		return nil, false
	}
	return v.([]spec.Entry), true
}

// Set inserts or updates the entries for the directory at offset,
// evicting the least-recently-used directory if the cache is now over capacity.
func (c *DirCache) Set(offset uint64, entries []spec.Entry) {
	c.cache.Add(offset, entries)
}

// Len returns the number of directories currently cached.
func (c *DirCache) Len() int {
	return c.cache.Len()
}
