// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache provides a concurrency-safe LRU cache for immutable
// protocol records.
package cache

import (
	"sync"

	"github.com/luxfi/geth/common/lru"
)

// LRU retains the most recently used values up to a fixed size. Entries are
// immutable once stored; there is no expiration.
type LRU[K comparable, V any] struct {
	cache *lru.Cache[K, V]
	lock  sync.RWMutex
}

// NewLRU creates a cache holding at most size entries.
func NewLRU[K comparable, V any](size int) *LRU[K, V] {
	return &LRU[K, V]{
		cache: lru.NewCache[K, V](size),
	}
}

// Put stores a value, evicting the least recently used entry when full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Add(key, value)
}

// Get returns the cached value for key, if present.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.cache.Get(key)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.cache.Len()
}
