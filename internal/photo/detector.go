package photo

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Detector answers "does this filename already exist for this user". It
// consults the cache first, falls back to the metadata store on misses, and
// offers a degraded cache-only mode when the store is unreachable.
//
// Detector is stateless apart from the shared cache and safe for concurrent
// use. Concurrent checks for overlapping filenames may race on cache
// population; last writer wins, and the store stays authoritative on a miss.
type Detector struct {
	stores    StoreProvider
	cache     *Cache
	monitor   *Monitor
	logger    Logger
	clock     Clock
	ttl       time.Duration
	batchSize int

	// group collapses concurrent identical single-filename misses into
	// one store query.
	group singleflight.Group
}

// NewDetector creates a Detector. ttl is the cache lifetime for verdicts;
// batchSize is the maximum number of filenames per store round-trip.
func NewDetector(stores StoreProvider, cache *Cache, monitor *Monitor, logger Logger, clock Clock, ttl time.Duration, batchSize int) *Detector {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Detector{
		stores:    stores,
		cache:     cache,
		monitor:   monitor,
		logger:    logger,
		clock:     clock,
		ttl:       ttl,
		batchSize: batchSize,
	}
}

// CheckOne resolves the collision verdict for a single filename. A cache
// hit returns immediately; a miss queries the store and caches the verdict
// for the configured TTL. Store failures propagate as ErrStoreUnavailable.
func (d *Detector) CheckOne(ctx context.Context, userID, filename string) (CollisionResult, error) {
	start := d.clock.Now()

	if entry, ok := d.cache.Get(userID, filename); ok {
		return entry.Result, nil
	}

	key := userID + "\x00" + filename
	v, err, _ := d.group.Do(key, func() (any, error) {
		return d.resolveOne(ctx, userID, filename)
	})
	if err != nil {
		return CollisionResult{}, err
	}

	result := v.(CollisionResult)
	if result.Collision {
		d.monitor.RecordCollision(userID, filename, d.clock.Now().Sub(start))
	}
	return result, nil
}

func (d *Detector) resolveOne(ctx context.Context, userID, filename string) (CollisionResult, error) {
	store, err := d.stores.ForUser(userID)
	if err != nil {
		return CollisionResult{}, fmt.Errorf("opening store for user %s: %w", userID, err)
	}

	rec, err := store.Exists(ctx, userID, filename)
	if err != nil {
		return CollisionResult{}, fmt.Errorf("checking filename %q: %w", filename, err)
	}

	result := resultFor(rec)
	d.cache.Put(userID, filename, result, d.ttl)
	return result, nil
}

// CheckBatch resolves verdicts for many filenames. Filenames are
// partitioned into order-preserving batches of at most batchSize; within
// each batch the cache is consulted first and the remaining misses go to
// the store in a single round-trip. The result map has exactly one entry
// per distinct input filename; duplicate inputs collapse to one coherent
// verdict. An empty input returns an empty map without touching the store.
func (d *Detector) CheckBatch(ctx context.Context, userID string, filenames []string) (map[string]CollisionResult, error) {
	start := d.clock.Now()

	results := make(map[string]CollisionResult, len(filenames))
	if len(filenames) == 0 {
		return results, nil
	}

	cacheHits := 0
	for begin := 0; begin < len(filenames); begin += d.batchSize {
		end := min(begin+d.batchSize, len(filenames))
		hits, err := d.checkSlice(ctx, userID, filenames[begin:end], results)
		if err != nil {
			return nil, err
		}
		cacheHits += hits
	}

	d.monitor.RecordBatch(userID, len(filenames), cacheHits, false, d.clock.Now().Sub(start))
	return results, nil
}

// checkSlice resolves one batch into results, returning the cache hit count.
func (d *Detector) checkSlice(ctx context.Context, userID string, batch []string, results map[string]CollisionResult) (int, error) {
	cacheHits := 0
	var misses []string
	seen := make(map[string]bool, len(batch))

	for _, name := range batch {
		if _, done := results[name]; done || seen[name] {
			continue
		}
		seen[name] = true
		if entry, ok := d.cache.Get(userID, name); ok {
			results[name] = entry.Result
			cacheHits++
			continue
		}
		misses = append(misses, name)
	}

	if len(misses) == 0 {
		return cacheHits, nil
	}

	store, err := d.stores.ForUser(userID)
	if err != nil {
		return cacheHits, fmt.Errorf("opening store for user %s: %w", userID, err)
	}

	records, err := store.ExistsBatch(ctx, userID, misses)
	if err != nil {
		return cacheHits, fmt.Errorf("batch lookup for user %s: %w", userID, err)
	}

	for _, name := range misses {
		result := resultFor(records[name])
		d.cache.Put(userID, name, result, d.ttl)
		results[name] = result
	}
	return cacheHits, nil
}

// CheckWithFallback resolves verdicts but never fails on a broken store.
// When the store is unavailable it degrades to cache-only results, filling
// every unresolved filename with Collision=false. Fail-open is a deliberate
// precision/availability trade-off: an upload proceeding past an undetected
// collision is recoverable, a blocked upload queue is not. The returned
// bool reports whether degraded mode was used.
func (d *Detector) CheckWithFallback(ctx context.Context, userID string, filenames []string) (map[string]CollisionResult, bool) {
	results, err := d.CheckBatch(ctx, userID, filenames)
	if err == nil {
		return results, false
	}

	d.logger.Warn("collision check degraded to cache-only results",
		"user", userID, "filenames", len(filenames), "error", err)

	start := d.clock.Now()
	results = make(map[string]CollisionResult, len(filenames))
	cacheHits := 0
	for _, name := range filenames {
		if entry, ok := d.cache.Get(userID, name); ok {
			results[name] = entry.Result
			cacheHits++
			continue
		}
		results[name] = CollisionResult{}
	}

	d.monitor.RecordBatch(userID, len(filenames), cacheHits, true, d.clock.Now().Sub(start))
	return results, true
}
