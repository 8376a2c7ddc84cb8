package photo

import "context"

// MetadataStore provides an interface over one user's embedded metadata
// database. Lookups return nil (not an error) when no record exists; any
// I/O or schema failure is wrapped so errors.Is(err, ErrStoreUnavailable)
// holds — a broken store must never be mistaken for "no collision".
//
// Filenames are opaque byte strings throughout: no case folding and no
// Unicode normalization is applied before lookup, so two filenames that
// differ only in form are distinct photos.
type MetadataStore interface {
	// Exists returns the record for (userID, filename), or nil if none.
	Exists(ctx context.Context, userID, filename string) (*PhotoRecord, error)

	// ExistsBatch resolves many filenames in a single round-trip. The
	// returned map contains an entry only for filenames that have a
	// record; absent keys mean no collision.
	ExistsBatch(ctx context.Context, userID string, filenames []string) (map[string]*PhotoRecord, error)

	// Upsert inserts the record, or updates the existing row in place
	// when isOverwrite is true. The write is transactional: on failure
	// the previous row is left intact.
	Upsert(ctx context.Context, record *PhotoRecord, isOverwrite bool) (*UpsertResult, error)

	// CountPhotos returns the number of records stored for a user.
	CountPhotos(ctx context.Context, userID string) (int64, error)

	// ValidateIntegrity checks the schema version, the underlying file
	// consistency and row-level invariants.
	ValidateIntegrity(ctx context.Context) (*IntegrityReport, error)

	// BackupTo writes a complete consistent copy of the database to
	// destPath. destPath must not already exist.
	BackupTo(ctx context.Context, destPath string) error

	// Close closes the database connection.
	Close() error
}

// StoreProvider hands out the metadata store for a user, opening and
// migrating the underlying database on first use.
type StoreProvider interface {
	ForUser(userID string) (MetadataStore, error)
}

// StoreManager extends StoreProvider with the file-level operations the
// sync manager needs to replace a local database out from under the
// provider. Only the sync manager may create or replace local files.
type StoreManager interface {
	StoreProvider

	// LocalPath returns the filesystem path of the user's database file,
	// whether or not it exists yet.
	LocalPath(userID string) string

	// Evict closes and forgets any open handle for the user so the file
	// can be deleted or replaced. A subsequent ForUser reopens it.
	Evict(userID string) error
}
