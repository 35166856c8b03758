// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package table

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tomtom215/biodscan/internal/models"
)

// DefaultFeedCapacity is used when NewLiveFeed is given a non-positive size.
const DefaultFeedCapacity = 500

type feedEntry struct {
	obs  models.Observation
	prev *feedEntry
	next *feedEntry
}

// LiveFeed is a bounded, thread-safe, newest-first list of observations
// keyed by ID. Prepending an ID that is already present moves it to the
// front instead of duplicating it.
//
// It uses a doubly-linked list with sentinels for ordering and a map for
// lookup, so Prepend and eviction are O(1).
type LiveFeed struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*feedEntry

	// head.next is the newest entry, tail.prev the oldest
	head *feedEntry
	tail *feedEntry

	evicted int64
}

// NewLiveFeed creates a feed holding at most capacity observations.
func NewLiveFeed(capacity int) *LiveFeed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	f := &LiveFeed{
		capacity: capacity,
		items:    make(map[string]*feedEntry, capacity),
		head:     &feedEntry{},
		tail:     &feedEntry{},
	}
	f.head.next = f.tail
	f.tail.prev = f.head
	return f
}

// Prepend adds obs as the newest entry and returns it, with a generated ID
// if it had none. The oldest entry is evicted when the feed is full.
func (f *LiveFeed) Prepend(obs models.Observation) models.Observation {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.items[obs.ID]; ok {
		e.obs = obs
		f.unlink(e)
		f.pushFront(e)
		return obs
	}

	e := &feedEntry{obs: obs}
	f.pushFront(e)
	f.items[obs.ID] = e

	for len(f.items) > f.capacity {
		oldest := f.tail.prev
		f.unlink(oldest)
		delete(f.items, oldest.obs.ID)
		f.evicted++
	}
	return obs
}

// Snapshot returns a copy of the feed, newest first.
func (f *LiveFeed) Snapshot() []models.Observation {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Observation, 0, len(f.items))
	for e := f.head.next; e != f.tail; e = e.next {
		out = append(out, e.obs)
	}
	return out
}

// Len returns the number of observations held.
func (f *LiveFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Capacity returns the maximum number of observations held.
func (f *LiveFeed) Capacity() int {
	return f.capacity
}

// Evicted returns how many observations were dropped for capacity.
func (f *LiveFeed) Evicted() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.evicted
}

// must be called with lock held
func (f *LiveFeed) pushFront(e *feedEntry) {
	e.prev = f.head
	e.next = f.head.next
	f.head.next.prev = e
	f.head.next = e
}

func (f *LiveFeed) unlink(e *feedEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}
