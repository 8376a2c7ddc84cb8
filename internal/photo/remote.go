package photo

import (
	"context"
	"io"
	"time"
)

// Generation is one versioned snapshot of a user's database backup held by
// the remote store. IDs sort lexically in creation order.
type Generation struct {
	ID        string
	CreatedAt time.Time
	Size      int64
}

// RemoteStore is the opaque versioned backup store for local databases.
// Implementations keep only the most recent generations per user and prune
// older ones themselves after each Put.
type RemoteStore interface {
	// Put stores size bytes from r as a new generation for the user and
	// returns it.
	Put(ctx context.Context, userID string, r io.Reader, size int64) (*Generation, error)

	// Latest writes the newest generation's contents to w. Returns
	// (nil, nil) when the user has no backup.
	Latest(ctx context.Context, userID string, w io.Writer) (*Generation, error)

	// List returns the user's generations, oldest first.
	List(ctx context.Context, userID string) ([]Generation, error)

	// ValidateSetup verifies the backend is reachable and configured.
	ValidateSetup(ctx context.Context) error
}
