package photo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ResetReport is the explicit terminal state of a forced reload. Every
// reset returns one; outcomes are never inferred from the absence of an
// error.
type ResetReport struct {
	UserID             string
	LocalDBDeleted     bool
	RemoteExists       bool
	DownloadSuccessful bool
	// DataLossRisk is true when no remote backup existed, meaning any
	// prior local-only data is now gone.
	DataLossRisk bool
	Duration     time.Duration
	CompletedAt  time.Time
}

// UploadReport is the terminal state of a local-to-remote push.
type UploadReport struct {
	UserID     string
	Generation Generation
	SizeBytes  int64
	Encrypted  bool
	Duration   time.Duration
}

// SyncState describes a user's local database versus its remote backup.
type SyncState struct {
	UserID       string
	LocalPath    string
	LocalExists  bool
	RemoteExists bool
	Generations  int
	LastSyncedAt time.Time // zero if never synced in this process
}

// Syncer owns the lifecycle of each user's local database file versus its
// remote backup: upload after writes, forced reset/reload, integrity
// validation. It is the only component that creates, deletes or replaces
// local database files.
//
// Reset and upload are mutually exclusive per user. Rather than queueing,
// a second operation fails fast with ErrResetInProgress; the interactive
// callers are better served by an immediate retryable error than an
// unbounded wait.
type Syncer struct {
	stores    StoreManager
	remote    RemoteStore
	cache     *Cache
	encryptor Encryptor // nil when backups are stored in plaintext
	logger    Logger
	clock     Clock
	timeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	lastSync map[string]time.Time
}

// NewSyncer creates a Syncer. encryptor may be nil; timeout bounds each
// remote download or upload.
func NewSyncer(stores StoreManager, remote RemoteStore, cache *Cache, encryptor Encryptor, logger Logger, clock Clock, timeout time.Duration) *Syncer {
	return &Syncer{
		stores:    stores,
		remote:    remote,
		cache:     cache,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		timeout:   timeout,
		inFlight:  make(map[string]bool),
		lastSync:  make(map[string]time.Time),
	}
}

// acquire takes the per-user lock, failing fast when an operation is
// already running for the user.
func (s *Syncer) acquire(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] {
		return fmt.Errorf("user %s: %w", userID, ErrResetInProgress)
	}
	s.inFlight[userID] = true
	return nil
}

func (s *Syncer) release(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

// remoteErr translates a deadline expiry into ErrSyncTimeout.
func remoteErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrSyncTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ForceReloadFromRemote destructively replaces the user's local database
// with the latest remote backup, or with a fresh empty database when no
// backup exists. confirm must be true; otherwise ErrConfirmationRequired
// is returned and nothing is touched. decrypt must be non-nil when the
// remote backups were uploaded encrypted.
//
// The per-user lock is held for the whole delete/download/install sequence
// and the new file is installed by rename, so readers never observe a
// half-written database. Whatever happens, the user ends up with a valid
// (possibly empty) local database.
func (s *Syncer) ForceReloadFromRemote(ctx context.Context, userID string, confirm bool, decrypt DecryptionContext) (*ResetReport, error) {
	if !confirm {
		return nil, fmt.Errorf("reload for user %s: %w", userID, ErrConfirmationRequired)
	}
	if err := s.acquire(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	start := s.clock.Now()
	report := &ResetReport{UserID: userID}
	localPath := s.stores.LocalPath(userID)

	s.logger.Info("forced reload started", "user", userID, "path", localPath)

	// Close any open handle before touching the file.
	if err := s.stores.Evict(userID); err != nil {
		return nil, fmt.Errorf("closing local database: %w", err)
	}

	if _, err := os.Stat(localPath); err == nil {
		if err := os.Remove(localPath); err != nil {
			return nil, fmt.Errorf("deleting local database: %w", err)
		}
		report.LocalDBDeleted = true
	}

	gen, downloadErr := s.downloadLatest(ctx, userID, localPath, decrypt)
	report.RemoteExists = gen != nil
	report.DownloadSuccessful = gen != nil && downloadErr == nil
	report.DataLossRisk = gen == nil

	if downloadErr != nil {
		s.logger.Error("remote download failed during reload", "user", userID, "error", downloadErr)
	}

	// Whether the download succeeded, failed, or found nothing, the user
	// must come out of a reset with a usable database. ForUser creates
	// and migrates a fresh one when no file exists; when a backup was
	// installed it verifies the schema.
	if _, err := s.stores.ForUser(userID); err != nil {
		return report, fmt.Errorf("initializing local database after reload: %w", err)
	}

	// Cached verdicts may describe rows that no longer exist.
	s.cache.Clear()

	report.Duration = s.clock.Now().Sub(start)
	report.CompletedAt = s.clock.Now()
	s.logger.Info("forced reload finished",
		"user", userID,
		"remoteExists", report.RemoteExists,
		"downloaded", report.DownloadSuccessful,
		"dataLossRisk", report.DataLossRisk)
	return report, nil
}

// downloadLatest fetches the newest remote generation and atomically
// installs it at localPath. Returns the generation (nil when the user has
// no backup) and any download/install error. On error nothing is installed.
func (s *Syncer) downloadLatest(ctx context.Context, userID, localPath string, decrypt DecryptionContext) (*Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	gen, err := s.remote.Latest(ctx, userID, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing temp file: %w", cerr)
	}
	if err != nil {
		return nil, remoteErr("downloading backup", err)
	}
	if gen == nil {
		return nil, nil
	}

	installPath := tmpPath
	if decrypt != nil {
		plainPath, err := decryptFile(decrypt, tmpPath, localPath)
		if err != nil {
			return gen, err
		}
		defer os.Remove(plainPath)
		installPath = plainPath
	}

	// Rename, never copy: the active path either holds the old file or
	// the complete new one.
	if err := os.Rename(installPath, localPath); err != nil {
		return gen, fmt.Errorf("installing downloaded database: %w", err)
	}
	return gen, nil
}

// decryptFile decrypts srcPath into a sibling temp file of dstPath and
// returns the temp path.
func decryptFile(decrypt DecryptionContext, srcPath, dstPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening downloaded backup: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".decrypt-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := decrypt.Decrypt(src, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("decrypting backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing decrypted backup: %w", err)
	}
	return tmpPath, nil
}

// UploadLocalToRemote snapshots the user's current database and pushes it
// as a new remote generation. The remote store prunes old generations
// itself. A failed upload never deletes or corrupts the local file.
func (s *Syncer) UploadLocalToRemote(ctx context.Context, userID string) (*UploadReport, error) {
	if err := s.acquire(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	start := s.clock.Now()

	store, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}

	snapPath, err := s.snapshotDatabase(ctx, store)
	if err != nil {
		return nil, err
	}
	defer os.Remove(snapPath)

	uploadPath := snapPath
	encrypted := false
	if s.encryptor != nil {
		encPath, err := s.encryptFile(snapPath)
		if err != nil {
			return nil, err
		}
		defer os.Remove(encPath)
		uploadPath = encPath
		encrypted = true
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	putCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	gen, err := s.remote.Put(putCtx, userID, f, info.Size())
	if err != nil {
		return nil, remoteErr("uploading backup", err)
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.lastSync[userID] = now
	s.mu.Unlock()

	s.logger.Info("database uploaded",
		"user", userID, "generation", gen.ID, "bytes", info.Size(), "encrypted", encrypted)
	return &UploadReport{
		UserID:     userID,
		Generation: *gen,
		SizeBytes:  info.Size(),
		Encrypted:  encrypted,
		Duration:   now.Sub(start),
	}, nil
}

// snapshotDatabase writes a consistent copy of the live database to a temp
// file and returns its path.
func (s *Syncer) snapshotDatabase(ctx context.Context, store MetadataStore) (string, error) {
	tmp, err := os.CreateTemp("", "photovault-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// BackupTo requires the destination not to exist.
	os.Remove(tmpPath)

	if err := store.BackupTo(ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("snapshotting database: %w", err)
	}
	return tmpPath, nil
}

// encryptFile encrypts srcPath into a new temp file and returns its path.
func (s *Syncer) encryptFile(srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "photovault-snapshot-*.db.age")
	if err != nil {
		return "", fmt.Errorf("creating encrypted snapshot file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := s.encryptor.Encrypt(src, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing encrypted snapshot: %w", err)
	}
	return tmpPath, nil
}

// ValidateIntegrity checks the user's local database and reports issues.
func (s *Syncer) ValidateIntegrity(ctx context.Context, userID string) (*IntegrityReport, error) {
	store, err := s.stores.ForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}
	return store.ValidateIntegrity(ctx)
}

// GetSyncInfo reports the user's local/remote sync state.
func (s *Syncer) GetSyncInfo(ctx context.Context, userID string) (*SyncState, error) {
	localPath := s.stores.LocalPath(userID)

	state := &SyncState{
		UserID:    userID,
		LocalPath: localPath,
	}
	if _, err := os.Stat(localPath); err == nil {
		state.LocalExists = true
	}

	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	gens, err := s.remote.List(listCtx, userID)
	if err != nil {
		return nil, remoteErr("listing remote backups", err)
	}
	state.RemoteExists = len(gens) > 0
	state.Generations = len(gens)

	s.mu.Lock()
	state.LastSyncedAt = s.lastSync[userID]
	s.mu.Unlock()

	return state, nil
}
