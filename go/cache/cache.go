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

// Package cache provides the bounded cache used for resolved relations.
//
// The cache is bounded by entry count only, with least-recently-used
// eviction on overflow. Cached values are opaque to the cache, so their
// memory footprint is not part of the eviction decision; callers that
// cache very wide tables should size the bound accordingly.
package cache

// Cache is a generic interface type for a data structure that keeps
// recently used objects in memory and evicts them when it becomes full.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, val any)
	ForEach(callback func(any) bool)

	Delete(key string)
	Clear()

	Len() int
	Capacity() int64
	Stats() *Stats
}

// Stats is a snapshot of the cache access counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Config is the configuration options for a cache instance.
type Config struct {
	// MaxEntries is the estimated amount of entries that the cache will
	// hold at capacity.
	MaxEntries int64
}

// DefaultConfig is the default configuration for a cache instance.
var DefaultConfig = &Config{
	MaxEntries: 1000,
}

// NewDefaultCacheImpl returns the default cache implementation for
// lakegate, which is an LRU cache bounded by entry count. A zero bound
// disables caching entirely.
func NewDefaultCacheImpl(cfg *Config) Cache {
	if cfg == nil || cfg.MaxEntries == 0 {
		return &nullCache{}
	}
	return NewLRUCache(cfg.MaxEntries)
}
