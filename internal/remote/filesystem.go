package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"photovault/internal/photo"
)

// MaxGenerations is how many backup generations each store retains per
// user. Older generations are pruned by the store itself after every Put.
const MaxGenerations = 3

// FileSystemStore keeps backup generations as files:
//
//	<root>/
//	  <userID>/
//	    <generationID>.db
//
// Generation IDs are zero-padded nanosecond timestamps, so lexical order
// is creation order.
type FileSystemStore struct {
	root  string
	clock photo.Clock
}

// NewFileSystemStore creates a store rooted at the given path.
func NewFileSystemStore(root string, clock photo.Clock) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating backup root: %w", err)
	}
	return &FileSystemStore{root: root, clock: clock}, nil
}

func generationID(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func (s *FileSystemStore) userDir(userID string) string {
	return filepath.Join(s.root, userID)
}

// Put stores a new generation for the user and prunes to MaxGenerations.
// The file is written to a temp path first and renamed into place, so a
// partial write never appears as a generation.
func (s *FileSystemStore) Put(ctx context.Context, userID string, r io.Reader, size int64) (*photo.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating user backup directory: %w", err)
	}

	now := s.clock.Now()
	gen := &photo.Generation{ID: generationID(now), CreatedAt: now, Size: size}
	destPath := filepath.Join(dir, gen.ID+".db")

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}
	if written != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return nil, fmt.Errorf("installing backup: %w", err)
	}
	success = true

	if err := s.prune(userID); err != nil {
		return nil, err
	}
	return gen, nil
}

// prune removes the oldest generations beyond MaxGenerations.
func (s *FileSystemStore) prune(userID string) error {
	gens, err := s.list(userID)
	if err != nil {
		return err
	}
	for len(gens) > MaxGenerations {
		old := gens[0]
		if err := os.Remove(filepath.Join(s.userDir(userID), old.ID+".db")); err != nil {
			return fmt.Errorf("pruning generation %s: %w", old.ID, err)
		}
		gens = gens[1:]
	}
	return nil
}

func (s *FileSystemStore) list(userID string) ([]photo.Generation, error) {
	entries, err := os.ReadDir(s.userDir(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading user backup directory: %w", err)
	}

	var gens []photo.Generation
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".db") {
			continue
		}
		id := strings.TrimSuffix(name, ".db")
		nanos, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue // not a generation file
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat generation %s: %w", id, err)
		}
		gens = append(gens, photo.Generation{
			ID:        id,
			CreatedAt: time.Unix(0, nanos),
			Size:      info.Size(),
		})
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i].ID < gens[j].ID })
	return gens, nil
}

// List returns the user's generations, oldest first.
func (s *FileSystemStore) List(ctx context.Context, userID string) ([]photo.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.list(userID)
}

// Latest writes the newest generation to w, or returns (nil, nil) when the
// user has no backup.
func (s *FileSystemStore) Latest(ctx context.Context, userID string, w io.Writer) (*photo.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gens, err := s.list(userID)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, nil
	}

	newest := gens[len(gens)-1]
	f, err := os.Open(filepath.Join(s.userDir(userID), newest.ID+".db"))
	if err != nil {
		return nil, fmt.Errorf("opening generation %s: %w", newest.ID, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return nil, fmt.Errorf("reading generation %s: %w", newest.ID, err)
	}
	return &newest, nil
}

// ValidateSetup verifies the root directory is accessible.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("backup root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("backup root is not a directory: %s", s.root)
	}
	return nil
}

// Compile-time check that FileSystemStore implements photo.RemoteStore.
var _ photo.RemoteStore = (*FileSystemStore)(nil)
