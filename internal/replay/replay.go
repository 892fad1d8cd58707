// Package replay remembers recently delivered update IDs so a webhook call
// replayed inside the window can be rejected. Entries live in memory only.
package replay

import (
	"sync"
	"time"
)

// DefaultWindow is how long an update_id is remembered.
const DefaultWindow = 10 * time.Minute

// Store is a TTL set of update IDs, safe for concurrent use.
type Store struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[int64]time.Time
}

// NewStore returns a store remembering IDs for window. A non-positive window
// uses DefaultWindow.
func NewStore(window time.Duration) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window: window,
		now:    time.Now,
		seen:   make(map[int64]time.Time),
	}
}

// Seen reports whether updateID was recorded inside the window. It does not
// record anything.
func (s *Store) Seen(updateID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seenLocked(updateID, s.now())
}

// Record remembers updateID. It returns false when the id was already
// recorded inside the window, so concurrent deliveries of one update are
// accepted exactly once.
func (s *Store) Record(updateID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.seenLocked(updateID, now) {
		return false
	}
	s.seen[updateID] = now
	return true
}

func (s *Store) seenLocked(updateID int64, now time.Time) bool {
	at, ok := s.seen[updateID]
	return ok && now.Sub(at) < s.window
}

// Prune forgets IDs older than the window and returns how many were dropped.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, at := range s.seen {
		if now.Sub(at) >= s.window {
			delete(s.seen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered IDs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Window returns the configured window.
func (s *Store) Window() time.Duration {
	return s.window
}
