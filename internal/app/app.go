package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"photovault/internal/config"
	"photovault/internal/database"
	"photovault/internal/encryption"
	"photovault/internal/events"
	"photovault/internal/photo"
	"photovault/internal/remote"
)

// App is the application layer between the CLI and the engine. It
// constructs every component from config, exposes high-level operations,
// and releases resources on Close.
type App struct {
	cfg       *config.Config
	stores    *database.Manager
	remote    photo.RemoteStore
	eventLog  photo.EventLog
	cache     *photo.Cache
	monitor   *photo.Monitor
	detector  *photo.Detector
	syncer    *photo.Syncer
	service   *photo.Service
	admin     *photo.Admin
	encryptor photo.Encryptor
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Check", "Reset") and tags
// every log line. The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	clock := photo.RealClock{}
	idgen := photo.UUIDGenerator{}

	stores, err := database.NewManager(cfg.DataDir, log, idgen)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store manager: %w", err)
	}

	remoteStore, err := remote.NewStoreFromConfig(ctx, cfg.Remote, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	eventLog, err := events.NewLogFromConfig(cfg.Events)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating event log: %w", err)
	}

	encryptor, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		eventLog.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	cache := photo.NewCache(cfg.Cache.MaxEntries, clock)
	monitor := photo.NewMonitor(eventLog, log, clock, idgen)
	detector := photo.NewDetector(stores, cache, monitor, log, clock, cfg.CacheTTL(), cfg.Detection.BatchSize)
	syncer := photo.NewSyncer(stores, remoteStore, cache, encryptor, log, clock, cfg.SyncTimeout())
	service := photo.NewService(detector, stores, cache, monitor, log, clock)
	admin := photo.NewAdmin(photo.StaticCapability(cfg.Admin.AllowDestructiveOps), syncer, stores, cache)

	return &App{
		cfg:       cfg,
		stores:    stores,
		remote:    remoteStore,
		eventLog:  eventLog,
		cache:     cache,
		monitor:   monitor,
		detector:  detector,
		syncer:    syncer,
		service:   service,
		admin:     admin,
		encryptor: encryptor,
		logFile:   logFile,
	}, nil
}

// CheckFilenames checks an upload batch for collisions, degrading to
// cache-only results when the store is unavailable.
func (a *App) CheckFilenames(ctx context.Context, userID string, filenames []string) (map[string]photo.CollisionResult, bool) {
	return a.service.CheckFilenamesWithFallback(ctx, userID, filenames)
}

// Status reports sync state, integrity and cache occupancy for a user.
func (a *App) Status(ctx context.Context, userID string) (*photo.DatabaseStatus, error) {
	return a.admin.GetDatabaseStatus(ctx, userID)
}

// Sync pushes the user's local database to the remote store as a new
// generation.
func (a *App) Sync(ctx context.Context, userID string) (*photo.UploadReport, error) {
	return a.syncer.UploadLocalToRemote(ctx, userID)
}

// Reset destructively reloads the user's database from the latest remote
// backup. passphrase is required only when backups are encrypted with a
// passphrase-protected key.
func (a *App) Reset(ctx context.Context, userID string, confirm bool, passphrase string) (*photo.ResetReport, error) {
	var decrypt photo.DecryptionContext
	if a.encryptor != nil {
		var err error
		decrypt, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlocking backup key: %w", err)
		}
	}
	return a.admin.ResetUserDatabase(ctx, userID, confirm, decrypt)
}

// Validate runs integrity checks against the user's local database.
func (a *App) Validate(ctx context.Context, userID string) (*photo.IntegrityReport, error) {
	return a.syncer.ValidateIntegrity(ctx, userID)
}

// Stats aggregates the user's recorded collision events.
func (a *App) Stats(userID string) (*photo.Statistics, error) {
	return a.monitor.Statistics(userID)
}

// PruneEvents deletes events older than maxAge and returns the count
// removed.
func (a *App) PruneEvents(maxAge time.Duration) (int, error) {
	return a.monitor.ClearOlderThan(maxAge)
}

// SetupKeys generates the backup encryption key pair. Fails when the
// configured encryption type has no keys to set up.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled; set encryption.type in the config first")
	}
	return a.encryptor.Setup(passphrase)
}

// Close releases every resource the App holds. The first error is
// returned; closing continues regardless.
func (a *App) Close() error {
	var firstErr error

	if err := a.stores.CloseAll(); err != nil {
		firstErr = err
	}
	if err := a.eventLog.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing event log: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
