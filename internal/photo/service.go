package photo

import (
	"context"
	"fmt"
)

// Decision is a user's choice for a colliding filename.
type Decision string

const (
	DecisionSkip      Decision = "skip"
	DecisionOverwrite Decision = "overwrite"
)

// Service is the surface the upload-handling layer calls: batch collision
// checks before accepting an upload, and decision resolution afterwards.
type Service struct {
	detector *Detector
	stores   StoreProvider
	cache    *Cache
	monitor  *Monitor
	logger   Logger
	clock    Clock
}

// NewService creates a Service.
func NewService(detector *Detector, stores StoreProvider, cache *Cache, monitor *Monitor, logger Logger, clock Clock) *Service {
	return &Service{
		detector: detector,
		stores:   stores,
		cache:    cache,
		monitor:  monitor,
		logger:   logger,
		clock:    clock,
	}
}

// CheckFilenamesWithFallback checks an upload batch, degrading to
// cache-only results when the store is unavailable rather than blocking
// the upload. fallbackUsed tells the caller to surface a soft warning that
// not all filenames could be verified.
func (s *Service) CheckFilenamesWithFallback(ctx context.Context, userID string, filenames []string) (map[string]CollisionResult, bool) {
	return s.detector.CheckWithFallback(ctx, userID, filenames)
}

// RecordUpload persists the record of a freshly accepted, non-colliding
// upload and drops any cached verdict for the filename, which would
// otherwise report no collision until its TTL ran out.
func (s *Service) RecordUpload(ctx context.Context, record *PhotoRecord) (*UpsertResult, error) {
	store, err := s.stores.ForUser(record.UserID)
	if err != nil {
		return nil, fmt.Errorf("opening store for user %s: %w", record.UserID, err)
	}

	result, err := store.Upsert(ctx, record, false)
	if err != nil {
		return nil, fmt.Errorf("recording upload: %w", err)
	}

	s.cache.Invalidate(record.UserID, record.Filename)
	s.logger.Debug("upload recorded", "user", record.UserID, "filename", record.Filename)
	return result, nil
}

// ResolveUserDecision applies the user's choice for a colliding filename.
// "skip" only records the decision; "overwrite" updates the stored record
// in place and invalidates the cached verdict. record may be nil for skip.
func (s *Service) ResolveUserDecision(ctx context.Context, userID string, record *PhotoRecord, decision Decision) (*UpsertResult, error) {
	start := s.clock.Now()

	switch decision {
	case DecisionSkip:
		filename := ""
		if record != nil {
			filename = record.Filename
		}
		s.monitor.RecordDecision(userID, filename, string(decision), s.clock.Now().Sub(start))
		return nil, nil

	case DecisionOverwrite:
		if record == nil {
			return nil, fmt.Errorf("overwrite decision requires a record")
		}

		store, err := s.stores.ForUser(userID)
		if err != nil {
			return nil, fmt.Errorf("opening store for user %s: %w", userID, err)
		}

		result, err := store.Upsert(ctx, record, true)
		if err != nil {
			return nil, fmt.Errorf("overwriting record: %w", err)
		}

		s.cache.Invalidate(userID, record.Filename)

		elapsed := s.clock.Now().Sub(start)
		s.monitor.RecordDecision(userID, record.Filename, string(decision), elapsed)
		s.monitor.RecordOverwrite(userID, record.Filename, elapsed)
		s.logger.Info("photo overwritten", "user", userID, "filename", record.Filename)
		return result, nil

	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}
}
