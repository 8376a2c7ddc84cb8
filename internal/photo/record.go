package photo

import "time"

// PhotoRecord is one row of upload metadata per photo. The metadata store
// owns persistence exclusively; a failed write leaves the previous row
// intact.
type PhotoRecord struct {
	ID            string
	UserID        string
	Filename      string
	OriginalPath  string
	ThumbnailPath string
	FileSizeBytes int64
	ContentType   string
	CreatedAt     time.Time // source creation timestamp, e.g. EXIF
	UploadedAt    time.Time
}

// FileInfo is the subset of stored metadata reported alongside a collision
// verdict so the caller can present the conflicting upload to the user.
type FileInfo struct {
	FileSizeBytes int64
	UploadedAt    time.Time
	CreatedAt     time.Time
}

// CollisionResult is the verdict for a single filename check.
// ExistingPhotoID and ExistingFile are set only when Collision is true.
type CollisionResult struct {
	Collision       bool
	ExistingPhotoID string
	ExistingFile    *FileInfo
}

// resultFor derives a CollisionResult from a store lookup.
// A nil record means no collision.
func resultFor(rec *PhotoRecord) CollisionResult {
	if rec == nil {
		return CollisionResult{}
	}
	return CollisionResult{
		Collision:       true,
		ExistingPhotoID: rec.ID,
		ExistingFile: &FileInfo{
			FileSizeBytes: rec.FileSizeBytes,
			UploadedAt:    rec.UploadedAt,
			CreatedAt:     rec.CreatedAt,
		},
	}
}

// Upsert operation names reported by the metadata store.
const (
	OperationInsert    = "insert"
	OperationOverwrite = "overwrite"
)

// UpsertResult reports the outcome of a metadata write.
type UpsertResult struct {
	PhotoID   string
	Operation string // OperationInsert or OperationOverwrite
}

// IntegrityReport describes the outcome of a database validation pass.
type IntegrityReport struct {
	Valid  bool
	Issues []string
}
