// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package cache

import (
	"sync"
	"time"
)

const (
	defaultCapacity = 4096
	defaultTTL      = 10 * time.Minute
)

type lruEntry struct {
	key       string
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// LRUCache is a thread-safe set of recently seen ids. Entries expire after
// ttl and the least recently seen entry is evicted at capacity. All
// operations are O(1).
type LRUCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*lruEntry

	// head.next is the most recently seen entry, tail.prev the least.
	head *lruEntry
	tail *lruEntry

	hits   int64
	misses int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size     int
	Capacity int
	Hits     int64 // duplicates detected
	Misses   int64 // first sightings
}

// NewLRUCache creates a cache. Non-positive values select 4096 entries and
// a 10 minute TTL.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// IsDuplicate reports whether key was seen within the TTL. A key that was not
// seen is recorded, so the first call for an id returns false and later calls
// return true until it expires or is evicted.
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.items[key]; ok {
		if now.Before(e.expiresAt) {
			c.moveToFront(e)
			c.hits++
			return true
		}
		c.removeEntry(e)
	}

	e := &lruEntry{key: key, expiresAt: now.Add(c.ttl)}
	c.addToFront(e)
	c.items[key] = e
	for len(c.items) > c.capacity {
		c.removeEntry(c.tail.prev)
	}
	c.misses++
	return false
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the counters.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.items), Capacity: c.capacity, Hits: c.hits, Misses: c.misses}
}

func (c *LRUCache) addToFront(e *lruEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRUCache) moveToFront(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *LRUCache) removeEntry(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
