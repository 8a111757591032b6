package auth

import (
	"sync"
	"time"
)

// AttemptTracker counts consecutive failed logins per user and blocks the
// account for a cooldown window once the limit is hit. Entries expire on
// read, so the map stays small without a reaper.
type AttemptTracker struct {
	maxAttempts int
	window      time.Duration

	mu       sync.Mutex
	attempts map[string]*attemptEntry
}

type attemptEntry struct {
	count    int
	lastFail time.Time
}

// NewAttemptTracker creates a tracker blocking after maxAttempts failures
// within the window.
func NewAttemptTracker(maxAttempts int, window time.Duration) *AttemptTracker {
	return &AttemptTracker{
		maxAttempts: maxAttempts,
		window:      window,
		attempts:    make(map[string]*attemptEntry),
	}
}

// Failed records a failed login for the user.
func (t *AttemptTracker) Failed(userID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.attempts[userID]
	if entry == nil || now.Sub(entry.lastFail) > t.window {
		entry = &attemptEntry{}
		t.attempts[userID] = entry
	}
	entry.count++
	entry.lastFail = now
}

// Reset clears the counter after a successful login.
func (t *AttemptTracker) Reset(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, userID)
}

// Blocked reports whether the user is locked out at the given instant.
func (t *AttemptTracker) Blocked(userID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.attempts[userID]
	if entry == nil {
		return false
	}
	if now.Sub(entry.lastFail) > t.window {
		delete(t.attempts, userID)
		return false
	}
	return entry.count >= t.maxAttempts
}

// Count returns the current consecutive-failure count for the user.
func (t *AttemptTracker) Count(userID string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.attempts[userID]
	if entry == nil || now.Sub(entry.lastFail) > t.window {
		return 0
	}
	return entry.count
}
