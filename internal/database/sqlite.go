package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"photovault/internal/database/migrations"
	"photovault/internal/photo"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements photo.MetadataStore over a single SQLite database file.
// Lookups return nil for missing records; every I/O or schema error is
// wrapped so errors.Is(err, photo.ErrStoreUnavailable) holds.
type Store struct {
	db    *sql.DB
	path  string
	idgen photo.IDGenerator
}

// NewStore opens (creating if needed) the database at path and applies any
// pending migrations. path can be ":memory:" for an in-memory database.
func NewStore(path string, idgen photo.IDGenerator) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, photo.Unavailable(err)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, photo.Unavailable(fmt.Errorf("migrating database: %w", err))
	}

	if idgen == nil {
		idgen = photo.UUIDGenerator{}
	}
	return &Store{db: db, path: path, idgen: idgen}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the engine relies on. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Foreign keys default to OFF in SQLite for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	// Concurrent upload sessions hit the same per-user file.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

const photoColumns = "id, user_id, filename, original_path, thumbnail_path, file_size_bytes, content_type, created_at, uploaded_at"

func scanPhoto(row interface{ Scan(...any) error }) (*photo.PhotoRecord, error) {
	var rec photo.PhotoRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Filename, &rec.OriginalPath,
		&rec.ThumbnailPath, &rec.FileSizeBytes, &rec.ContentType,
		&rec.CreatedAt, &rec.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Exists returns the record for (userID, filename), or nil when none.
func (s *Store) Exists(ctx context.Context, userID, filename string) (*photo.PhotoRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE user_id = ? AND filename = ?",
		userID, filename)

	rec, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // no collision
		}
		return nil, photo.Unavailable(fmt.Errorf("finding photo by filename: %w", err))
	}
	return rec, nil
}

// ExistsBatch resolves many filenames in one query. The returned map has
// entries only for filenames that have records.
func (s *Store) ExistsBatch(ctx context.Context, userID string, filenames []string) (map[string]*photo.PhotoRecord, error) {
	found := make(map[string]*photo.PhotoRecord, len(filenames))
	if len(filenames) == 0 {
		return found, nil
	}

	placeholders := strings.Repeat("?,", len(filenames))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(filenames)+1)
	args = append(args, userID)
	for _, name := range filenames {
		args = append(args, name)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE user_id = ? AND filename IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, photo.Unavailable(fmt.Errorf("batch filename lookup: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanPhoto(rows)
		if err != nil {
			return nil, photo.Unavailable(fmt.Errorf("scanning photo row: %w", err))
		}
		found[rec.Filename] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, photo.Unavailable(fmt.Errorf("reading photo rows: %w", err))
	}
	return found, nil
}

// Upsert inserts a new record, or updates the existing row in place when
// isOverwrite is true. The whole write runs in one transaction: a failed
// write leaves the previous row intact. Inserting over an existing
// (user, filename) without isOverwrite is an error.
func (s *Store) Upsert(ctx context.Context, record *photo.PhotoRecord, isOverwrite bool) (*photo.UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, photo.Unavailable(fmt.Errorf("starting transaction: %w", err))
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM photos WHERE user_id = ? AND filename = ?",
		record.UserID, record.Filename).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existingID = ""
	case err != nil:
		return nil, photo.Unavailable(fmt.Errorf("finding existing photo: %w", err))
	}

	result := &photo.UpsertResult{}

	if existingID != "" {
		if !isOverwrite {
			return nil, fmt.Errorf("photo %q already exists for user %s", record.Filename, record.UserID)
		}
		// Overwrite keeps the stable photo ID.
		_, err = tx.ExecContext(ctx,
			`UPDATE photos
			 SET original_path = ?, thumbnail_path = ?, file_size_bytes = ?,
			     content_type = ?, created_at = ?, uploaded_at = ?
			 WHERE id = ?`,
			record.OriginalPath, record.ThumbnailPath, record.FileSizeBytes,
			record.ContentType, record.CreatedAt, record.UploadedAt, existingID)
		if err != nil {
			return nil, photo.Unavailable(fmt.Errorf("updating photo: %w", err))
		}
		record.ID = existingID
		result.PhotoID = existingID
		result.Operation = photo.OperationOverwrite
	} else {
		if record.ID == "" {
			record.ID = s.idgen.New()
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO photos ("+photoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			record.ID, record.UserID, record.Filename, record.OriginalPath,
			record.ThumbnailPath, record.FileSizeBytes, record.ContentType,
			record.CreatedAt, record.UploadedAt)
		if err != nil {
			return nil, photo.Unavailable(fmt.Errorf("inserting photo: %w", err))
		}
		result.PhotoID = record.ID
		result.Operation = photo.OperationInsert
	}

	if err := tx.Commit(); err != nil {
		return nil, photo.Unavailable(fmt.Errorf("committing transaction: %w", err))
	}
	return result, nil
}

// CountPhotos returns the number of records stored for a user.
func (s *Store) CountPhotos(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM photos WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, photo.Unavailable(fmt.Errorf("counting photos: %w", err))
	}
	return count, nil
}

// ListPhotos returns all records for a user ordered by upload time.
func (s *Store) ListPhotos(ctx context.Context, userID string) ([]*photo.PhotoRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE user_id = ? ORDER BY uploaded_at, filename",
		userID)
	if err != nil {
		return nil, photo.Unavailable(fmt.Errorf("listing photos: %w", err))
	}
	defer rows.Close()

	var records []*photo.PhotoRecord
	for rows.Next() {
		rec, err := scanPhoto(rows)
		if err != nil {
			return nil, photo.Unavailable(fmt.Errorf("scanning photo row: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, photo.Unavailable(fmt.Errorf("reading photo rows: %w", err))
	}
	return records, nil
}

// ValidateIntegrity checks the file, the schema version and row-level
// invariants, collecting every issue found rather than stopping at the
// first.
func (s *Store) ValidateIntegrity(ctx context.Context) (*photo.IntegrityReport, error) {
	var issues []string

	var check string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&check); err != nil {
		return nil, photo.Unavailable(fmt.Errorf("running integrity check: %w", err))
	}
	if check != "ok" {
		issues = append(issues, "sqlite integrity_check: "+check)
	}

	if err := migrations.CheckStatus(s.db); err != nil {
		issues = append(issues, "schema: "+err.Error())
	}

	rowChecks := []struct {
		name  string
		query string
	}{
		{"rows with empty user_id", "SELECT COUNT(*) FROM photos WHERE user_id = ''"},
		{"rows with empty filename", "SELECT COUNT(*) FROM photos WHERE filename = ''"},
		{"rows with empty id", "SELECT COUNT(*) FROM photos WHERE id = ''"},
		{"rows with null timestamps", "SELECT COUNT(*) FROM photos WHERE created_at IS NULL OR uploaded_at IS NULL"},
	}
	for _, rc := range rowChecks {
		var n int64
		if err := s.db.QueryRowContext(ctx, rc.query).Scan(&n); err != nil {
			return nil, photo.Unavailable(fmt.Errorf("running row check %q: %w", rc.name, err))
		}
		if n > 0 {
			issues = append(issues, fmt.Sprintf("%s: %d", rc.name, n))
		}
	}

	return &photo.IntegrityReport{Valid: len(issues) == 0, Issues: issues}, nil
}

// BackupTo writes a complete consistent copy of the database to destPath
// using VACUUM INTO. destPath must not already exist.
func (s *Store) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return photo.Unavailable(fmt.Errorf("backing up database: %w", err))
	}
	return nil
}

// Path returns the database file path (or ":memory:").
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that Store implements photo.MetadataStore.
var _ photo.MetadataStore = (*Store)(nil)
