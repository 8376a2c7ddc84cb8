package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photovault/internal/photo"
)

// Manager hands out one Store per user, backed by <dataDir>/<userID>.db.
// Stores are opened (and migrated) on first use and reused afterwards. The
// sync manager evicts a user's handle before deleting or replacing the
// underlying file.
type Manager struct {
	dataDir string
	logger  photo.Logger
	idgen   photo.IDGenerator

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a Manager rooted at dataDir, creating the directory
// if needed.
func NewManager(dataDir string, logger photo.Logger, idgen photo.IDGenerator) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Manager{
		dataDir: dataDir,
		logger:  logger,
		idgen:   idgen,
		stores:  make(map[string]*Store),
	}, nil
}

// validUserID rejects identifiers that could escape the data directory.
func validUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("empty user ID")
	}
	if strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return fmt.Errorf("invalid user ID %q", userID)
	}
	return nil
}

// LocalPath returns the filesystem path of the user's database file,
// whether or not it exists yet.
func (m *Manager) LocalPath(userID string) string {
	return filepath.Join(m.dataDir, userID+".db")
}

// ForUser returns the user's metadata store, opening and migrating the
// database on first use. A missing file is created empty and schema-valid.
func (m *Manager) ForUser(userID string) (photo.MetadataStore, error) {
	if err := validUserID(userID); err != nil {
		return nil, photo.Unavailable(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[userID]; ok {
		return store, nil
	}

	path := m.LocalPath(userID)
	store, err := NewStore(path, m.idgen)
	if err != nil {
		return nil, fmt.Errorf("opening database for user %s: %w", userID, err)
	}

	m.logger.Debug("user database opened", "user", userID, "path", path)
	m.stores[userID] = store
	return store, nil
}

// Evict closes and forgets the user's open handle, if any. A subsequent
// ForUser reopens (or recreates) the database.
func (m *Manager) Evict(userID string) error {
	m.mu.Lock()
	store, ok := m.stores[userID]
	delete(m.stores, userID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing database for user %s: %w", userID, err)
	}
	return nil
}

// CloseAll closes every open store. The first error is returned; closing
// continues regardless.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for userID, store := range m.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database for user %s: %w", userID, err)
		}
		delete(m.stores, userID)
	}
	return firstErr
}

// Compile-time check that Manager implements photo.StoreManager.
var _ photo.StoreManager = (*Manager)(nil)
