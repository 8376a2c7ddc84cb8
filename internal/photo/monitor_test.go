package photo_test

import (
	"fmt"
	"testing"
	"time"

	"photovault/internal/events"
	"photovault/internal/photo"
	"photovault/internal/testutil"
)

// failingLog always fails Append. Other methods behave like an empty log.
type failingLog struct{}

func (failingLog) Append(*photo.Event) error              { return fmt.Errorf("log unavailable") }
func (failingLog) List(string) ([]*photo.Event, error)    { return nil, nil }
func (failingLog) DeleteOlderThan(time.Time) (int, error) { return 0, nil }
func (failingLog) Close() error                           { return nil }

func newTestMonitor(t *testing.T) (*photo.Monitor, *events.MemoryLog, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	log := events.NewMemoryLog()
	return photo.NewMonitor(log, photo.NewNopLogger(), clock, testutil.NewStubIDGenerator()), log, clock
}

func TestMonitor_Statistics(t *testing.T) {
	t.Run("aggregates counts per kind", func(t *testing.T) {
		m, _, _ := newTestMonitor(t)

		m.RecordCollision("alice", "a.jpg", 10*time.Millisecond)
		m.RecordCollision("alice", "b.jpg", 20*time.Millisecond)
		m.RecordDecision("alice", "a.jpg", "skip", 5*time.Millisecond)
		m.RecordDecision("alice", "b.jpg", "overwrite", 5*time.Millisecond)
		m.RecordOverwrite("alice", "b.jpg", 30*time.Millisecond)
		m.RecordBatch("alice", 10, 4, false, 40*time.Millisecond)
		m.RecordBatch("alice", 5, 5, true, 2*time.Millisecond)

		stats, err := m.Statistics("alice")
		if err != nil {
			t.Fatalf("Statistics() error = %v", err)
		}
		if stats.Collisions != 2 {
			t.Errorf("Collisions = %d, want 2", stats.Collisions)
		}
		if stats.Decisions != 2 {
			t.Errorf("Decisions = %d, want 2", stats.Decisions)
		}
		if stats.Overwrites != 1 {
			t.Errorf("Overwrites = %d, want 1", stats.Overwrites)
		}
		if stats.Batches != 2 {
			t.Errorf("Batches = %d, want 2", stats.Batches)
		}
		if stats.DegradedBatches != 1 {
			t.Errorf("DegradedBatches = %d, want 1", stats.DegradedBatches)
		}
		if stats.OverwriteRate != 0.5 {
			t.Errorf("OverwriteRate = %f, want 0.5", stats.OverwriteRate)
		}
		if got := stats.MeanDuration[photo.EventCollision]; got != 15*time.Millisecond {
			t.Errorf("MeanDuration[collision] = %v, want 15ms", got)
		}
	})

	t.Run("overwrite rate is zero with no decisions", func(t *testing.T) {
		m, _, _ := newTestMonitor(t)
		m.RecordCollision("alice", "a.jpg", time.Millisecond)

		stats, err := m.Statistics("alice")
		if err != nil {
			t.Fatalf("Statistics() error = %v", err)
		}
		if stats.OverwriteRate != 0 {
			t.Errorf("OverwriteRate = %f, want 0", stats.OverwriteRate)
		}
	})

	t.Run("statistics are scoped per user", func(t *testing.T) {
		m, _, _ := newTestMonitor(t)
		m.RecordCollision("alice", "a.jpg", time.Millisecond)
		m.RecordCollision("bob", "b.jpg", time.Millisecond)

		stats, err := m.Statistics("alice")
		if err != nil {
			t.Fatalf("Statistics() error = %v", err)
		}
		if stats.Collisions != 1 {
			t.Errorf("Collisions = %d, want 1", stats.Collisions)
		}
	})
}

func TestMonitor_RecordNeverFails(t *testing.T) {
	m := photo.NewMonitor(failingLog{}, photo.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

	// Recording must swallow append failures.
	m.RecordCollision("alice", "a.jpg", time.Millisecond)
	m.RecordBatch("alice", 1, 0, false, time.Millisecond)
}

func TestMonitor_EventFields(t *testing.T) {
	m, log, clock := newTestMonitor(t)
	m.RecordDecision("alice", "a.jpg", "overwrite", 7*time.Millisecond)

	evs, err := log.List("alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("List() returned %d events, want 1", len(evs))
	}

	ev := evs[0]
	if ev.ID == "" {
		t.Error("event ID not assigned")
	}
	if ev.Kind != photo.EventDecision {
		t.Errorf("Kind = %q, want decision", ev.Kind)
	}
	if ev.Decision != "overwrite" {
		t.Errorf("Decision = %q, want overwrite", ev.Decision)
	}
	if ev.DurationMS != 7 {
		t.Errorf("DurationMS = %d, want 7", ev.DurationMS)
	}
	if !ev.RecordedAt.Equal(clock.Now()) {
		t.Errorf("RecordedAt = %v, want %v", ev.RecordedAt, clock.Now())
	}
}

func TestMonitor_ClearOlderThan(t *testing.T) {
	m, _, clock := newTestMonitor(t)

	m.RecordCollision("alice", "old.jpg", time.Millisecond)
	clock.Advance(48 * time.Hour)
	m.RecordCollision("alice", "new.jpg", time.Millisecond)

	removed, err := m.ClearOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("ClearOlderThan() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("ClearOlderThan() removed = %d, want 1", removed)
	}

	stats, err := m.Statistics("alice")
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.Collisions != 1 {
		t.Errorf("Collisions after prune = %d, want 1", stats.Collisions)
	}
}
