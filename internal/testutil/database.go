package testutil

import (
	"path/filepath"
	"testing"

	"photovault/internal/database"
	"photovault/internal/photo"
)

// NewTestStore creates a SQLite metadata store in a temp directory with the
// schema applied. The store is closed when the test completes.
func NewTestStore(t *testing.T) photo.MetadataStore {
	t.Helper()

	store, err := database.NewStore(filepath.Join(t.TempDir(), "test.db"), NewStubIDGenerator())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
