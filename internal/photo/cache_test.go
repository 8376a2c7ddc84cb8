package photo_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"photovault/internal/photo"
	"photovault/internal/testutil"
)

func collisionResult(photoID string) photo.CollisionResult {
	return photo.CollisionResult{
		Collision:       true,
		ExistingPhotoID: photoID,
		ExistingFile:    &photo.FileInfo{FileSizeBytes: 100},
	}
}

func TestCache_GetPut(t *testing.T) {
	t.Run("miss on empty cache", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())

		if _, ok := cache.Get("alice", "beach.jpg"); ok {
			t.Error("Get() hit on empty cache")
		}
	})

	t.Run("returns a stored verdict", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Put("alice", "beach.jpg", collisionResult("p1"), 5*time.Minute)

		entry, ok := cache.Get("alice", "beach.jpg")
		if !ok {
			t.Fatal("Get() miss after Put()")
		}
		if !entry.Result.Collision || entry.Result.ExistingPhotoID != "p1" {
			t.Errorf("Get() result = %+v, want collision with p1", entry.Result)
		}
	})

	t.Run("entries are scoped per user", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Put("alice", "beach.jpg", collisionResult("p1"), 5*time.Minute)

		if _, ok := cache.Get("bob", "beach.jpg"); ok {
			t.Error("Get() returned alice's verdict for bob")
		}
	})

	t.Run("filenames are not canonicalized", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Put("alice", "Beach.jpg", collisionResult("p1"), 5*time.Minute)

		if _, ok := cache.Get("alice", "beach.jpg"); ok {
			t.Error("Get() matched a filename differing in case")
		}
	})

	t.Run("put overwrites existing entry", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Put("alice", "beach.jpg", collisionResult("p1"), 5*time.Minute)
		cache.Put("alice", "beach.jpg", photo.CollisionResult{}, 5*time.Minute)

		entry, ok := cache.Get("alice", "beach.jpg")
		if !ok {
			t.Fatal("Get() miss after overwrite")
		}
		if entry.Result.Collision {
			t.Error("Get() returned the stale verdict")
		}
	})
}

func TestCache_Expiry(t *testing.T) {
	t.Run("entry expires after ttl", func(t *testing.T) {
		clock := testutil.FixedClock()
		cache := photo.NewCache(10, clock)
		cache.Put("alice", "beach.jpg", collisionResult("p1"), 5*time.Minute)

		clock.Advance(5*time.Minute + time.Second)

		if _, ok := cache.Get("alice", "beach.jpg"); ok {
			t.Error("Get() hit after ttl elapsed")
		}
	})

	t.Run("entry valid just before ttl", func(t *testing.T) {
		clock := testutil.FixedClock()
		cache := photo.NewCache(10, clock)
		cache.Put("alice", "beach.jpg", collisionResult("p1"), 5*time.Minute)

		clock.Advance(5*time.Minute - time.Second)

		if _, ok := cache.Get("alice", "beach.jpg"); !ok {
			t.Error("Get() miss before ttl elapsed")
		}
	})

	t.Run("expired entry is removed on read", func(t *testing.T) {
		clock := testutil.FixedClock()
		cache := photo.NewCache(10, clock)
		cache.Put("alice", "beach.jpg", collisionResult("p1"), 5*time.Minute)

		clock.Advance(10 * time.Minute)
		cache.Get("alice", "beach.jpg")

		stats := cache.Stats()
		if stats.TotalEntries != 0 {
			t.Errorf("Stats().TotalEntries = %d, want 0 after expired read", stats.TotalEntries)
		}
	})
}

func TestCache_Eviction(t *testing.T) {
	t.Run("never exceeds max entries", func(t *testing.T) {
		cache := photo.NewCache(3, testutil.FixedClock())
		for i := 0; i < 10; i++ {
			cache.Put("alice", fmt.Sprintf("photo-%d.jpg", i), photo.CollisionResult{}, time.Hour)
		}

		stats := cache.Stats()
		if stats.TotalEntries != 3 {
			t.Errorf("Stats().TotalEntries = %d, want 3", stats.TotalEntries)
		}
	})

	t.Run("evicts the least recently used entry", func(t *testing.T) {
		cache := photo.NewCache(2, testutil.FixedClock())
		cache.Put("alice", "a.jpg", photo.CollisionResult{}, time.Hour)
		cache.Put("alice", "b.jpg", photo.CollisionResult{}, time.Hour)

		// Touch a.jpg so b.jpg becomes the LRU entry.
		cache.Get("alice", "a.jpg")
		cache.Put("alice", "c.jpg", photo.CollisionResult{}, time.Hour)

		if _, ok := cache.Get("alice", "a.jpg"); !ok {
			t.Error("recently used entry a.jpg was evicted")
		}
		if _, ok := cache.Get("alice", "b.jpg"); ok {
			t.Error("LRU entry b.jpg was not evicted")
		}
	})

	t.Run("overwriting at capacity does not evict", func(t *testing.T) {
		cache := photo.NewCache(2, testutil.FixedClock())
		cache.Put("alice", "a.jpg", photo.CollisionResult{}, time.Hour)
		cache.Put("alice", "b.jpg", photo.CollisionResult{}, time.Hour)
		cache.Put("alice", "a.jpg", collisionResult("p1"), time.Hour)

		if _, ok := cache.Get("alice", "b.jpg"); !ok {
			t.Error("b.jpg was evicted by an overwrite of a.jpg")
		}
	})
}

func TestCache_InvalidateClear(t *testing.T) {
	t.Run("invalidate removes one entry", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Put("alice", "a.jpg", photo.CollisionResult{}, time.Hour)
		cache.Put("alice", "b.jpg", photo.CollisionResult{}, time.Hour)

		cache.Invalidate("alice", "a.jpg")

		if _, ok := cache.Get("alice", "a.jpg"); ok {
			t.Error("Get() hit after Invalidate()")
		}
		if _, ok := cache.Get("alice", "b.jpg"); !ok {
			t.Error("Invalidate() removed an unrelated entry")
		}
	})

	t.Run("invalidate of absent entry is a no-op", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Invalidate("alice", "missing.jpg")
	})

	t.Run("clear removes everything", func(t *testing.T) {
		cache := photo.NewCache(10, testutil.FixedClock())
		cache.Put("alice", "a.jpg", photo.CollisionResult{}, time.Hour)
		cache.Put("bob", "b.jpg", photo.CollisionResult{}, time.Hour)

		cache.Clear()

		stats := cache.Stats()
		if stats.TotalEntries != 0 {
			t.Errorf("Stats().TotalEntries = %d, want 0 after Clear()", stats.TotalEntries)
		}
	})
}

func TestCache_Stats(t *testing.T) {
	clock := testutil.FixedClock()
	cache := photo.NewCache(10, clock)
	cache.Put("alice", "a.jpg", photo.CollisionResult{}, time.Minute)
	cache.Put("alice", "b.jpg", photo.CollisionResult{}, time.Hour)

	clock.Advance(5 * time.Minute)

	stats := cache.Stats()
	if stats.TotalEntries != 2 {
		t.Errorf("Stats().TotalEntries = %d, want 2", stats.TotalEntries)
	}
	if stats.ValidEntries != 1 {
		t.Errorf("Stats().ValidEntries = %d, want 1", stats.ValidEntries)
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := photo.NewCache(64, testutil.FixedClock())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				name := fmt.Sprintf("photo-%d.jpg", j%100)
				cache.Put("alice", name, photo.CollisionResult{}, time.Hour)
				cache.Get("alice", name)
				if j%10 == 0 {
					cache.Invalidate("alice", name)
				}
			}
		}(i)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.TotalEntries > 64 {
		t.Errorf("Stats().TotalEntries = %d, want <= 64", stats.TotalEntries)
	}
}
