package remote

import (
	"context"
	"fmt"

	"photovault/internal/config"
	"photovault/internal/photo"
)

// NewStoreFromConfig creates a RemoteStore implementation based on the
// remote config type.
func NewStoreFromConfig(ctx context.Context, cfg config.RemoteConfig, clock photo.Clock) (photo.RemoteStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(clock), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem backup store requires root to be set")
		}
		return NewFileSystemStore(cfg.Root, clock)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, clock)
	default:
		return nil, fmt.Errorf("unknown remote store type: %s", cfg.Type)
	}
}
