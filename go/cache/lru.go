/*
Copyright 2023 The Lakegate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// LRUCache is a Cache bounded by entry count with least-recently-used
// eviction, backed by hashicorp/golang-lru. It is safe for concurrent
// use; Get does not block concurrent Set or Delete calls beyond the
// backing store's own short critical section.
type LRUCache struct {
	backing  *lru.Cache
	capacity int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

var _ Cache = (*LRUCache)(nil)

// NewLRUCache creates a new LRUCache holding at most capacity entries.
func NewLRUCache(capacity int64) *LRUCache {
	backing, err := lru.New(int(capacity))
	if err != nil {
		// Only reachable with a non-positive capacity, which
		// NewDefaultCacheImpl already routes to the null cache.
		panic(err)
	}
	return &LRUCache{backing: backing, capacity: capacity}
}

// Get returns the value for key and marks it as recently used.
func (c *LRUCache) Get(key string) (any, bool) {
	val, ok := c.backing.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return val, ok
}

// Set inserts or replaces the value for key, evicting the least
// recently used entry if the cache is at capacity.
func (c *LRUCache) Set(key string, val any) {
	if evicted := c.backing.Add(key, val); evicted {
		c.evictions.Add(1)
	}
}

// ForEach calls callback for every cached value until it returns false.
// Iteration does not refresh recency.
func (c *LRUCache) ForEach(callback func(any) bool) {
	for _, key := range c.backing.Keys() {
		val, ok := c.backing.Peek(key)
		if !ok {
			continue
		}
		if !callback(val) {
			return
		}
	}
}

// Delete removes the entry for key if present. Deleting an absent key
// is a no-op.
func (c *LRUCache) Delete(key string) {
	c.backing.Remove(key)
}

// Clear removes all cached entries.
func (c *LRUCache) Clear() {
	c.backing.Purge()
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	return c.backing.Len()
}

// Capacity returns the maximum entry count.
func (c *LRUCache) Capacity() int64 {
	return c.capacity
}

// Stats returns a snapshot of the access counters. Evictions counts LRU
// overflow only, not explicit deletes.
func (c *LRUCache) Stats() *Stats {
	return &Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
