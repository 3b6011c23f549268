package game

import (
	"sync"
	"time"
)

// TimerRegistry owns the per-room round timers, keyed by roomId. At most
// one timer exists per room; scheduling replaces any outstanding one.
// Keeping timer handles out of the Room keeps room snapshots pure data.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerRegistry creates an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d for roomID, cancelling any previous timer
// for the same room. fn runs on its own goroutine and must re-check room
// liveness on entry.
func (tr *TimerRegistry) Schedule(roomID string, d time.Duration, fn func()) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if old, ok := tr.timers[roomID]; ok {
		old.Stop()
	}
	tr.timers[roomID] = time.AfterFunc(d, func() {
		tr.mu.Lock()
		delete(tr.timers, roomID)
		tr.mu.Unlock()
		fn()
	})
}

// Cancel stops and forgets the room's timer, if any.
func (tr *TimerRegistry) Cancel(roomID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if t, ok := tr.timers[roomID]; ok {
		t.Stop()
		delete(tr.timers, roomID)
	}
}

// Has reports whether a timer is outstanding for roomID.
func (tr *TimerRegistry) Has(roomID string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	_, ok := tr.timers[roomID]
	return ok
}

// StopAll cancels every outstanding timer. Used at shutdown.
func (tr *TimerRegistry) StopAll() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for id, t := range tr.timers {
		t.Stop()
		delete(tr.timers, id)
	}
}
