// Package match holds the matchmaking queue: a process-local FIFO of
// players waiting for a random opponent. The queue is deliberately not
// persisted; a restart wipes it and clients re-enqueue.
package match

import (
	"sync"
	"time"
)

type Entry struct {
	ClientID     string
	ConnectionID string
	AccountID    string
	DisplayName  string
	Mode         string
	EnqueuedAt   time.Time
}

type Queue struct {
	mu      sync.Mutex
	entries []Entry
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends an entry. If the clientID is already queued the old
// entry is replaced in place, keeping its position: re-enqueueing must
// not let a player wait twice or jump the line.
func (q *Queue) Enqueue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e.EnqueuedAt = time.Now()
	for i := range q.entries {
		if q.entries[i].ClientID == e.ClientID {
			e.EnqueuedAt = q.entries[i].EnqueuedAt
			q.entries[i] = e
			return
		}
	}
	q.entries = append(q.entries, e)
}

// DequeueCompatible removes and returns the oldest entry whose mode
// matches. Removal happens under the lock, so the same entry can never
// be handed to two concurrent pairing attempts.
func (q *Queue) DequeueCompatible(mode string) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Mode == mode {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

// Take removes and returns the entry for a specific clientID, used when
// a join targets a queued (not yet roomed) player directly.
func (q *Queue) Take(clientID string) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ClientID == clientID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

// Remove drops the entry for clientID on explicit cancel or disconnect.
func (q *Queue) Remove(clientID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ClientID == clientID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
