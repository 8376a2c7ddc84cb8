package events

import (
	"sync"
	"time"

	"photovault/internal/photo"
)

// MemoryLog is an in-process EventLog. Events live only as long as the
// process; use the bolt log when audit history must survive restarts.
type MemoryLog struct {
	mu     sync.Mutex
	events []*photo.Event
}

// NewMemoryLog creates an empty in-memory event log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append records an event.
func (l *MemoryLog) Append(ev *photo.Event) error {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

// List returns the user's events in recording order.
func (l *MemoryLog) List(userID string) ([]*photo.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*photo.Event
	for _, ev := range l.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// DeleteOlderThan removes events recorded before cutoff and returns the
// count removed.
func (l *MemoryLog) DeleteOlderThan(cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0]
	removed := 0
	for _, ev := range l.events {
		if ev.RecordedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	l.events = kept
	return removed, nil
}

// Close is a no-op for the in-memory log.
func (l *MemoryLog) Close() error { return nil }

// Compile-time check that MemoryLog implements photo.EventLog.
var _ photo.EventLog = (*MemoryLog)(nil)
