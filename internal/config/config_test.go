package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		DataDir: "/home/user/.local/share/photovault/data",
		LogDir:  "/home/user/.local/share/photovault/log",
		Cache:   CacheConfig{TTLSeconds: 120, MaxEntries: 1000},
		Detection: DetectionConfig{
			BatchSize: 25,
		},
		Sync: SyncConfig{TimeoutSeconds: 10},
		Remote: RemoteConfig{
			Type:     "s3",
			S3Bucket: "photovault-backups",
			S3Prefix: "prod",
			S3Region: "eu-west-1",
		},
		Events: EventsConfig{Type: "bolt", Path: "/data/events.db"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/keys/photovault.pub",
			PrivateKeyPath: "/keys/photovault.key",
		},
		Admin: AdminConfig{AllowDestructiveOps: true},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.DataDir != original.DataDir {
		t.Errorf("DataDir = %q, want %q", got.DataDir, original.DataDir)
	}
	if got.Cache.TTLSeconds != 120 {
		t.Errorf("Cache.TTLSeconds = %d, want 120", got.Cache.TTLSeconds)
	}
	if got.Cache.MaxEntries != 1000 {
		t.Errorf("Cache.MaxEntries = %d, want 1000", got.Cache.MaxEntries)
	}
	if got.Detection.BatchSize != 25 {
		t.Errorf("Detection.BatchSize = %d, want 25", got.Detection.BatchSize)
	}
	if got.Sync.TimeoutSeconds != 10 {
		t.Errorf("Sync.TimeoutSeconds = %d, want 10", got.Sync.TimeoutSeconds)
	}
	if got.Remote.Type != "s3" {
		t.Errorf("Remote.Type = %q, want %q", got.Remote.Type, "s3")
	}
	if got.Remote.S3Bucket != "photovault-backups" {
		t.Errorf("Remote.S3Bucket = %q, want %q", got.Remote.S3Bucket, "photovault-backups")
	}
	if got.Events.Type != "bolt" || got.Events.Path != "/data/events.db" {
		t.Errorf("Events = %+v, want bolt at /data/events.db", got.Events)
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
	if !got.Admin.AllowDestructiveOps {
		t.Error("Admin.AllowDestructiveOps = false, want true")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/photovault")

	if cfg.DataDir != filepath.Join("/data/photovault", "data") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.LogDir != filepath.Join("/data/photovault", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Remote.Type != "filesystem" {
		t.Errorf("Remote.Type = %q, want filesystem", cfg.Remote.Type)
	}
	if cfg.Remote.Root != filepath.Join("/data/photovault", "backups") {
		t.Errorf("Remote.Root = %q", cfg.Remote.Root)
	}
	if cfg.Events.Type != "bolt" {
		t.Errorf("Events.Type = %q, want bolt", cfg.Events.Type)
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want none", cfg.Encryption.Type)
	}
	if cfg.Cache.TTLSeconds != DefaultCacheTTLSeconds {
		t.Errorf("Cache.TTLSeconds = %d, want default %d", cfg.Cache.TTLSeconds, DefaultCacheTTLSeconds)
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	if cfg.Cache.TTLSeconds != DefaultCacheTTLSeconds {
		t.Errorf("Cache.TTLSeconds = %d, want %d", cfg.Cache.TTLSeconds, DefaultCacheTTLSeconds)
	}
	if cfg.Cache.MaxEntries != DefaultCacheMaxEntries {
		t.Errorf("Cache.MaxEntries = %d, want %d", cfg.Cache.MaxEntries, DefaultCacheMaxEntries)
	}
	if cfg.Detection.BatchSize != DefaultBatchSize {
		t.Errorf("Detection.BatchSize = %d, want %d", cfg.Detection.BatchSize, DefaultBatchSize)
	}
	if cfg.Sync.TimeoutSeconds != DefaultSyncTimeoutSeconds {
		t.Errorf("Sync.TimeoutSeconds = %d, want %d", cfg.Sync.TimeoutSeconds, DefaultSyncTimeoutSeconds)
	}
	if cfg.Events.Type != "memory" {
		t.Errorf("Events.Type = %q, want memory", cfg.Events.Type)
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want none", cfg.Encryption.Type)
	}

	if cfg.CacheTTL() != time.Duration(DefaultCacheTTLSeconds)*time.Second {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	if cfg.SyncTimeout() != time.Duration(DefaultSyncTimeoutSeconds)*time.Second {
		t.Errorf("SyncTimeout() = %v", cfg.SyncTimeout())
	}
}

func TestInit(t *testing.T) {
	t.Run("creates a new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "photovault.toml")

		if err := Init(path, NewConfig("/data/photovault")); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		cfg, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if cfg.Remote.Type != "filesystem" {
			t.Errorf("Remote.Type = %q, want filesystem", cfg.Remote.Type)
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "photovault.toml")
		if err := os.WriteFile(path, []byte("data_dir = '/x'\n"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		if err := Init(path, NewConfig("/data/photovault")); err == nil {
			t.Error("Init() expected error for existing file")
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("ReadFromFile() expected error for missing file")
	}
}
