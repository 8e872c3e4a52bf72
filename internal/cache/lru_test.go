// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(capacity int, ttl time.Duration) (*LRUCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	c := NewLRUCache(capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestNewLRUCache_Defaults(t *testing.T) {
	t.Parallel()

	c := NewLRUCache(0, 0)
	if c.capacity != defaultCapacity {
		t.Errorf("capacity = %d, want %d", c.capacity, defaultCapacity)
	}
	if c.ttl != defaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, defaultTTL)
	}
}

func TestLRUCache_IsDuplicate(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(10, time.Minute)
	if c.IsDuplicate("msg-1") {
		t.Fatal("first sighting reported as duplicate")
	}
	if !c.IsDuplicate("msg-1") {
		t.Fatal("second sighting not reported as duplicate")
	}
	if c.IsDuplicate("msg-2") {
		t.Fatal("different id reported as duplicate")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 2 || s.Size != 2 || s.Capacity != 10 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(10, time.Minute)
	c.IsDuplicate("msg-1")

	// A repeat sighting does not extend the TTL.
	clock.Advance(59 * time.Second)
	if !c.IsDuplicate("msg-1") {
		t.Fatal("entry expired early")
	}
	clock.Advance(time.Second)
	if c.IsDuplicate("msg-1") {
		t.Fatal("expired entry reported as duplicate")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUCache_EvictsLeastRecentlySeen(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(2, time.Hour)
	c.IsDuplicate("a")
	c.IsDuplicate("b")
	c.IsDuplicate("a") // a is now most recent
	c.IsDuplicate("c") // evicts b

	for key, want := range map[string]bool{"a": true, "b": false, "c": true} {
		if _, ok := c.items[key]; ok != want {
			t.Errorf("%s present = %v, want %v", key, ok, want)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 3 {
		t.Errorf("Stats() = %+v, want 1 hit and 3 misses", s)
	}
}

func TestLRUCache_ConcurrentFirstSighting(t *testing.T) {
	t.Parallel()

	c := NewLRUCache(1000, time.Hour)
	const goroutines = 16

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("msg-%d", i)
		var wg sync.WaitGroup
		var mu sync.Mutex
		firsts := 0
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !c.IsDuplicate(key) {
					mu.Lock()
					firsts++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if firsts != 1 {
			t.Fatalf("%s: %d first sightings, want 1", key, firsts)
		}
	}
}
