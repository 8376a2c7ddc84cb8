package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for photovault.
type Config struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`

	Cache      CacheConfig      `toml:"cache"`
	Detection  DetectionConfig  `toml:"detection"`
	Sync       SyncConfig       `toml:"sync"`
	Remote     RemoteConfig     `toml:"remote"`
	Events     EventsConfig     `toml:"events"`
	Encryption EncryptionConfig `toml:"encryption"`
	Admin      AdminConfig      `toml:"admin"`
}

// CacheConfig bounds the collision cache.
type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
	MaxEntries int `toml:"max_entries"`
}

// DetectionConfig tunes batched collision checks.
type DetectionConfig struct {
	BatchSize int `toml:"batch_size"` // filenames per store round-trip
}

// SyncConfig bounds remote download/upload operations.
type SyncConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// RemoteConfig selects the backup backend. This uses a tagged union
// pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "filesystem", "memory", or "s3"

	// Filesystem-specific (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// EventsConfig selects the collision-event log backend.
type EventsConfig struct {
	Type string `toml:"type"`           // "memory" or "bolt"
	Path string `toml:"path,omitempty"` // only used for type=bolt
}

// EncryptionConfig selects backup encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age", or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// AdminConfig gates the destructive admin surface. Leave false in
// production.
type AdminConfig struct {
	AllowDestructiveOps bool `toml:"allow_destructive_ops"`
}

// Defaults applied by Normalize.
const (
	DefaultCacheTTLSeconds    = 300
	DefaultCacheMaxEntries    = 4096
	DefaultBatchSize          = 50
	DefaultSyncTimeoutSeconds = 30
)

// NewConfig creates a Config rooted at baseDir with default settings and a
// filesystem backup store.
func NewConfig(baseDir string) *Config {
	cfg := &Config{
		DataDir: filepath.Join(baseDir, "data"),
		LogDir:  filepath.Join(baseDir, "log"),
		Remote: RemoteConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "backups"),
		},
		Events: EventsConfig{
			Type: "bolt",
			Path: filepath.Join(baseDir, "events.db"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "photovault.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "photovault.key"),
		},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = DefaultCacheTTLSeconds
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if c.Detection.BatchSize <= 0 {
		c.Detection.BatchSize = DefaultBatchSize
	}
	if c.Sync.TimeoutSeconds <= 0 {
		c.Sync.TimeoutSeconds = DefaultSyncTimeoutSeconds
	}
	if c.Events.Type == "" {
		c.Events.Type = "memory"
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "none"
	}
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SyncTimeout returns the remote operation deadline as a duration.
func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and normalizes it.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path. Fails if one
// already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
