package testutil

import (
	"context"
	"fmt"
	"sync"

	"photovault/internal/photo"
)

// FakeStore is an in-memory photo.MetadataStore with call counting and
// failure injection. Records are keyed by filename; all records share the
// store's user.
type FakeStore struct {
	mu      sync.Mutex
	records map[string]*photo.PhotoRecord

	// FailNext causes the next lookup or write to fail with a wrapped
	// ErrStoreUnavailable. Reset after one use.
	FailNext bool

	// FailAlways causes every lookup and write to fail.
	FailAlways bool

	ExistsCalls      int
	ExistsBatchCalls int
	UpsertCalls      int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{records: make(map[string]*photo.PhotoRecord)}
}

// Seed stores a record directly, bypassing call counting.
func (s *FakeStore) Seed(rec *photo.PhotoRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Filename] = rec
}

func (s *FakeStore) fail() error {
	if s.FailAlways {
		return photo.Unavailable(fmt.Errorf("injected failure"))
	}
	if s.FailNext {
		s.FailNext = false
		return photo.Unavailable(fmt.Errorf("injected failure"))
	}
	return nil
}

func (s *FakeStore) Exists(ctx context.Context, userID, filename string) (*photo.PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExistsCalls++
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.records[filename], nil
}

func (s *FakeStore) ExistsBatch(ctx context.Context, userID string, filenames []string) (map[string]*photo.PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExistsBatchCalls++
	if err := s.fail(); err != nil {
		return nil, err
	}
	found := make(map[string]*photo.PhotoRecord)
	for _, name := range filenames {
		if rec, ok := s.records[name]; ok {
			found[name] = rec
		}
	}
	return found, nil
}

func (s *FakeStore) Upsert(ctx context.Context, record *photo.PhotoRecord, isOverwrite bool) (*photo.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpsertCalls++
	if err := s.fail(); err != nil {
		return nil, err
	}
	if existing, ok := s.records[record.Filename]; ok {
		if !isOverwrite {
			return nil, fmt.Errorf("record already exists for %q", record.Filename)
		}
		updated := *record
		updated.ID = existing.ID
		s.records[record.Filename] = &updated
		return &photo.UpsertResult{PhotoID: existing.ID, Operation: photo.OperationOverwrite}, nil
	}
	stored := *record
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("fake-%d", len(s.records)+1)
	}
	s.records[record.Filename] = &stored
	return &photo.UpsertResult{PhotoID: stored.ID, Operation: photo.OperationInsert}, nil
}

func (s *FakeStore) CountPhotos(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return 0, err
	}
	return int64(len(s.records)), nil
}

func (s *FakeStore) ValidateIntegrity(ctx context.Context) (*photo.IntegrityReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	return &photo.IntegrityReport{Valid: true}, nil
}

func (s *FakeStore) BackupTo(ctx context.Context, destPath string) error {
	return nil
}

func (s *FakeStore) Close() error { return nil }

var _ photo.MetadataStore = (*FakeStore)(nil)

// FakeProvider is a photo.StoreProvider returning one FakeStore per user.
type FakeProvider struct {
	mu     sync.Mutex
	stores map[string]*FakeStore

	// Err, when set, is returned by ForUser instead of a store.
	Err error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{stores: make(map[string]*FakeStore)}
}

// Store returns the FakeStore for a user, creating it if needed. Useful
// for seeding records and inspecting call counts.
func (p *FakeProvider) Store(userID string) *FakeStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[userID]
	if !ok {
		s = NewFakeStore()
		p.stores[userID] = s
	}
	return s
}

func (p *FakeProvider) ForUser(userID string) (photo.MetadataStore, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Store(userID), nil
}

var _ photo.StoreProvider = (*FakeProvider)(nil)
