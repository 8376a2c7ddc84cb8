package photo

import (
	"context"
	"fmt"
)

// Capability gates the admin surface. It is injected at construction so
// call sites never consult deployment-mode globals and tests can exercise
// both sides of the gate.
type Capability interface {
	AllowDestructiveOps() bool
}

// StaticCapability is a fixed Capability, normally built from config.
type StaticCapability bool

func (c StaticCapability) AllowDestructiveOps() bool { return bool(c) }

// DatabaseStatus combines sync state, integrity and cache occupancy for
// diagnostics.
type DatabaseStatus struct {
	Sync       *SyncState
	Integrity  *IntegrityReport
	PhotoCount int64
	Cache      CacheStats
}

// Admin is the administrative surface over the syncer and store. Every
// operation, including the read-only ones, is refused with
// ErrAdminDisabled unless the capability allows it.
type Admin struct {
	capability Capability
	syncer     *Syncer
	stores     StoreProvider
	cache      *Cache
}

// NewAdmin creates the admin surface with an injected capability.
func NewAdmin(capability Capability, syncer *Syncer, stores StoreProvider, cache *Cache) *Admin {
	return &Admin{
		capability: capability,
		syncer:     syncer,
		stores:     stores,
		cache:      cache,
	}
}

func (a *Admin) allowed() error {
	if !a.capability.AllowDestructiveOps() {
		return ErrAdminDisabled
	}
	return nil
}

// GetDatabaseStatus reports the user's sync state, integrity and cache
// occupancy.
func (a *Admin) GetDatabaseStatus(ctx context.Context, userID string) (*DatabaseStatus, error) {
	if err := a.allowed(); err != nil {
		return nil, err
	}

	sync, err := a.syncer.GetSyncInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting sync info: %w", err)
	}

	integrity, err := a.syncer.ValidateIntegrity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("validating integrity: %w", err)
	}

	store, err := a.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	count, err := store.CountPhotos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting photos: %w", err)
	}

	return &DatabaseStatus{
		Sync:       sync,
		Integrity:  integrity,
		PhotoCount: count,
		Cache:      a.cache.Stats(),
	}, nil
}

// ResetUserDatabase destructively reloads the user's database from the
// latest remote backup. confirm is forwarded to the syncer, which refuses
// the operation without it.
func (a *Admin) ResetUserDatabase(ctx context.Context, userID string, confirm bool, decrypt DecryptionContext) (*ResetReport, error) {
	if err := a.allowed(); err != nil {
		return nil, err
	}
	return a.syncer.ForceReloadFromRemote(ctx, userID, confirm, decrypt)
}
