package photo

import (
	"fmt"
	"time"
)

// EventKind classifies a recorded event.
type EventKind string

const (
	EventCollision EventKind = "collision"
	EventDecision  EventKind = "decision"
	EventOverwrite EventKind = "overwrite"
	EventBatch     EventKind = "batch"
)

// Event is one append-only audit record. Events are pruned only by explicit
// age-based retention calls, never automatically.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	UserID     string    `json:"userId"`
	Filename   string    `json:"filename,omitempty"`
	Decision   string    `json:"decision,omitempty"`
	BatchSize  int       `json:"batchSize,omitempty"`
	CacheHits  int       `json:"cacheHits,omitempty"`
	Degraded   bool      `json:"degraded,omitempty"`
	DurationMS int64     `json:"durationMs"`
	RecordedAt time.Time `json:"recordedAt"`
}

// EventLog persists events. Implementations must be safe for concurrent
// appends.
type EventLog interface {
	Append(ev *Event) error
	List(userID string) ([]*Event, error)
	DeleteOlderThan(cutoff time.Time) (int, error)
	Close() error
}

// Statistics aggregates a user's events per category.
type Statistics struct {
	UserID          string
	Collisions      int
	Decisions       int
	Overwrites      int
	Batches         int
	DegradedBatches int
	// OverwriteRate is overwrites / decisions, 0 when no decisions.
	OverwriteRate float64
	// MeanDuration is the mean recorded duration per event kind.
	MeanDuration map[EventKind]time.Duration
}

// Monitor records collision, decision, overwrite and batch events for
// statistics and auditing. A recording failure is logged and swallowed:
// observability must never fail the operation being observed.
type Monitor struct {
	log    EventLog
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewMonitor creates a Monitor writing to the given event log.
func NewMonitor(log EventLog, logger Logger, clock Clock, idgen IDGenerator) *Monitor {
	return &Monitor{log: log, logger: logger, clock: clock, idgen: idgen}
}

func (m *Monitor) record(ev *Event) {
	ev.ID = m.idgen.New()
	ev.RecordedAt = m.clock.Now()
	if err := m.log.Append(ev); err != nil {
		m.logger.Error("recording monitor event failed",
			"kind", string(ev.Kind), "user", ev.UserID, "error", err)
	}
}

// RecordCollision records that a check found an existing record.
func (m *Monitor) RecordCollision(userID, filename string, d time.Duration) {
	m.record(&Event{
		Kind:       EventCollision,
		UserID:     userID,
		Filename:   filename,
		DurationMS: d.Milliseconds(),
	})
}

// RecordDecision records a user's skip/overwrite choice for a filename.
func (m *Monitor) RecordDecision(userID, filename, decision string, d time.Duration) {
	m.record(&Event{
		Kind:       EventDecision,
		UserID:     userID,
		Filename:   filename,
		Decision:   decision,
		DurationMS: d.Milliseconds(),
	})
}

// RecordOverwrite records an in-place replacement of an existing photo.
func (m *Monitor) RecordOverwrite(userID, filename string, d time.Duration) {
	m.record(&Event{
		Kind:       EventOverwrite,
		UserID:     userID,
		Filename:   filename,
		DurationMS: d.Milliseconds(),
	})
}

// RecordBatch records one batched detection pass. degraded marks a pass
// served from the cache alone because the store was unavailable.
func (m *Monitor) RecordBatch(userID string, size, cacheHits int, degraded bool, d time.Duration) {
	m.record(&Event{
		Kind:       EventBatch,
		UserID:     userID,
		BatchSize:  size,
		CacheHits:  cacheHits,
		Degraded:   degraded,
		DurationMS: d.Milliseconds(),
	})
}

// Statistics aggregates counts, rates and mean durations for a user.
func (m *Monitor) Statistics(userID string) (*Statistics, error) {
	events, err := m.log.List(userID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	stats := &Statistics{
		UserID:       userID,
		MeanDuration: make(map[EventKind]time.Duration),
	}
	totals := make(map[EventKind]int64)
	counts := make(map[EventKind]int)

	for _, ev := range events {
		counts[ev.Kind]++
		totals[ev.Kind] += ev.DurationMS
		switch ev.Kind {
		case EventCollision:
			stats.Collisions++
		case EventDecision:
			stats.Decisions++
		case EventOverwrite:
			stats.Overwrites++
		case EventBatch:
			stats.Batches++
			if ev.Degraded {
				stats.DegradedBatches++
			}
		}
	}

	for kind, n := range counts {
		if n > 0 {
			stats.MeanDuration[kind] = time.Duration(totals[kind]/int64(n)) * time.Millisecond
		}
	}
	if stats.Decisions > 0 {
		stats.OverwriteRate = float64(stats.Overwrites) / float64(stats.Decisions)
	}
	return stats, nil
}

// ClearOlderThan deletes events older than maxAge and returns how many were
// removed. Retention is explicit: nothing prunes on its own.
func (m *Monitor) ClearOlderThan(maxAge time.Duration) (int, error) {
	cutoff := m.clock.Now().Add(-maxAge)
	removed, err := m.log.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return removed, nil
}
