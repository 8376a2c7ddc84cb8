package remote_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"photovault/internal/remote"
	"photovault/internal/testutil"
)

func TestMemoryStore(t *testing.T) {
	t.Run("round trips a backup", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := remote.NewMemoryStore(clock)

		gen, err := store.Put(context.Background(), "alice", strings.NewReader("backup-data"), 11)
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		latest, err := store.Latest(context.Background(), "alice", &buf)
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if latest.ID != gen.ID {
			t.Errorf("Latest() ID = %s, want %s", latest.ID, gen.ID)
		}
		if buf.String() != "backup-data" {
			t.Errorf("Latest() data = %q, want backup-data", buf.String())
		}
	})

	t.Run("no backup returns nil without error", func(t *testing.T) {
		store := remote.NewMemoryStore(testutil.FixedClock())

		var buf bytes.Buffer
		gen, err := store.Latest(context.Background(), "alice", &buf)
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if gen != nil {
			t.Errorf("Latest() = %+v, want nil", gen)
		}
	})

	t.Run("rejects a size mismatch", func(t *testing.T) {
		store := remote.NewMemoryStore(testutil.FixedClock())

		if _, err := store.Put(context.Background(), "alice", strings.NewReader("short"), 100); err == nil {
			t.Error("Put() expected error for size mismatch")
		}
	})

	t.Run("retains only the newest generations", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := remote.NewMemoryStore(clock)

		for i := 0; i < remote.MaxGenerations+1; i++ {
			clock.Advance(time.Second)
			if _, err := store.Put(context.Background(), "alice", strings.NewReader("data"), 4); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
		}

		gens, err := store.List(context.Background(), "alice")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(gens) != remote.MaxGenerations {
			t.Errorf("List() returned %d generations, want %d", len(gens), remote.MaxGenerations)
		}
		for i := 1; i < len(gens); i++ {
			if gens[i-1].ID >= gens[i].ID {
				t.Errorf("generations out of order: %s before %s", gens[i-1].ID, gens[i].ID)
			}
		}
	})
}
