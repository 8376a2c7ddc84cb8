package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"photovault/internal/photo"
)

type memoryGeneration struct {
	gen  photo.Generation
	data []byte
}

// MemoryStore is an in-memory RemoteStore for tests. Safe for concurrent
// use; retention matches the real backends.
type MemoryStore struct {
	clock photo.Clock

	mu          sync.RWMutex
	generations map[string][]memoryGeneration // userID -> oldest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(clock photo.Clock) *MemoryStore {
	return &MemoryStore{
		clock:       clock,
		generations: make(map[string][]memoryGeneration),
	}
}

// Put stores a new generation, trimming to MaxGenerations.
func (m *MemoryStore) Put(ctx context.Context, userID string, r io.Reader, size int64) (*photo.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	now := m.clock.Now()
	gen := photo.Generation{ID: generationID(now), CreatedAt: now, Size: size}

	m.mu.Lock()
	defer m.mu.Unlock()

	gens := append(m.generations[userID], memoryGeneration{gen: gen, data: data})
	for len(gens) > MaxGenerations {
		gens = gens[1:]
	}
	m.generations[userID] = gens
	return &gen, nil
}

// Latest writes the newest generation to w, or returns (nil, nil) when the
// user has no backup.
func (m *MemoryStore) Latest(ctx context.Context, userID string, w io.Writer) (*photo.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	gens := m.generations[userID]
	m.mu.RUnlock()

	if len(gens) == 0 {
		return nil, nil
	}
	newest := gens[len(gens)-1]
	if _, err := io.Copy(w, bytes.NewReader(newest.data)); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	gen := newest.gen
	return &gen, nil
}

// List returns the user's generations, oldest first.
func (m *MemoryStore) List(ctx context.Context, userID string) ([]photo.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	gens := make([]photo.Generation, len(m.generations[userID]))
	for i, g := range m.generations[userID] {
		gens[i] = g.gen
	}
	return gens, nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error { return nil }

// Compile-time check that MemoryStore implements photo.RemoteStore.
var _ photo.RemoteStore = (*MemoryStore)(nil)
