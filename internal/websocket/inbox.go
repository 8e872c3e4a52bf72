// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"sort"
	"sync"

	"github.com/tomtom215/whisperbox/internal/models"
)

// Inbox is a session's cache of a recipient's messages. It is keyed by
// message id and kept newest first. The store stays authoritative: a
// re-list overwrites cached fields such as is_read.
type Inbox struct {
	mu   sync.RWMutex
	byID map[string]int
	msgs []models.Message
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{byID: make(map[string]int)}
}

// newer orders by created_at then id, both descending, matching listMessages.
func newer(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Add inserts m or refreshes the cached copy. It reports whether m was new.
func (in *Inbox) Add(m models.Message) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.addLocked(m)
}

func (in *Inbox) addLocked(m models.Message) bool {
	if i, ok := in.byID[m.ID]; ok {
		in.msgs[i] = m
		return false
	}

	pos := sort.Search(len(in.msgs), func(i int) bool {
		return newer(&m, &in.msgs[i])
	})
	in.msgs = append(in.msgs, models.Message{})
	copy(in.msgs[pos+1:], in.msgs[pos:])
	in.msgs[pos] = m
	in.reindexFrom(pos)
	return true
}

// Reconcile replaces the cache with a full re-list. Cached messages missing
// from msgs were deleted and are dropped; their ids are returned as removed.
// added holds the messages that were new, oldest first.
func (in *Inbox) Reconcile(msgs []models.Message) (added []models.Message, removed []string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	keep := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		keep[m.ID] = struct{}{}
	}
	for _, m := range in.msgs {
		if _, ok := keep[m.ID]; !ok {
			removed = append(removed, m.ID)
		}
	}
	for _, id := range removed {
		in.removeLocked(id)
	}
	for _, m := range msgs {
		if in.addLocked(m) {
			added = append(added, m)
		}
	}
	sort.Slice(added, func(i, j int) bool {
		return newer(&added[j], &added[i])
	})
	return added, removed
}

func (in *Inbox) removeLocked(id string) bool {
	i, ok := in.byID[id]
	if !ok {
		return false
	}
	in.msgs = append(in.msgs[:i], in.msgs[i+1:]...)
	delete(in.byID, id)
	in.reindexFrom(i)
	return true
}

func (in *Inbox) reindexFrom(pos int) {
	for i := pos; i < len(in.msgs); i++ {
		in.byID[in.msgs[i].ID] = i
	}
}

// Messages returns a copy of the cached messages, newest first.
func (in *Inbox) Messages() []models.Message {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make([]models.Message, len(in.msgs))
	copy(out, in.msgs)
	return out
}

// Len returns the number of cached messages.
func (in *Inbox) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.msgs)
}
