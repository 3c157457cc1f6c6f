// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached coordinates.
const DefaultCacheSize = 1000

// keyPrecision is the number of decimals the cache key keeps. Five decimals
// is roughly one meter, close enough that repeated lookups of the same spot
// collapse into a single entry.
const keyPrecision = "%.5f,%.5f"

// cacheEntry distinguishes a resolved address from a provider that had no
// answer. Both are cached so a coordinate is never asked about twice.
type cacheEntry struct {
	address   string
	available bool
}

// Cache is a bounded least-recently-used cache of reverse-geocoding results
// keyed by rounded coordinates. It lives for the whole process run so later
// input files reuse answers from earlier ones.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

// NewCache creates a cache with the given capacity. A capacity below one
// falls back to DefaultCacheSize.
func NewCache(capacity int) (*Cache, error) {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}

	entries, err := lru.New[string, cacheEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating geocode cache: %w", err)
	}

	return &Cache{entries: entries}, nil
}

// Key returns the cache key for a coordinate.
func Key(lat, lon float64) string {
	return fmt.Sprintf(keyPrecision, lat, lon)
}

// Get returns the cached address for a coordinate. The second result is
// true when the coordinate has been seen before, even if the provider had
// no address for it.
func (c *Cache) Get(lat, lon float64) (string, bool) {
	entry, ok := c.entries.Get(Key(lat, lon))
	if !ok {
		return "", false
	}

	if !entry.available {
		return "", true
	}

	return entry.address, true
}

// Put stores an address for a coordinate, evicting the least recently used
// entry when at capacity.
func (c *Cache) Put(lat, lon float64, address string) {
	c.entries.Add(Key(lat, lon), cacheEntry{address: address, available: true})
}

// PutUnavailable records that the provider has no address for a coordinate.
func (c *Cache) PutUnavailable(lat, lon float64) {
	c.entries.Add(Key(lat, lon), cacheEntry{})
}

// Len returns the number of cached coordinates.
func (c *Cache) Len() int {
	return c.entries.Len()
}
