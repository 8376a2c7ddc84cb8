package remote_test

import (
	"context"
	"testing"

	"photovault/internal/config"
	"photovault/internal/remote"
	"photovault/internal/testutil"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := remote.NewStoreFromConfig(context.Background(),
			config.RemoteConfig{Type: "memory"}, testutil.FixedClock())
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := store.(*remote.MemoryStore); !ok {
			t.Errorf("store = %T, want *MemoryStore", store)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		store, err := remote.NewStoreFromConfig(context.Background(),
			config.RemoteConfig{Type: "filesystem", Root: t.TempDir()}, testutil.FixedClock())
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := store.(*remote.FileSystemStore); !ok {
			t.Errorf("store = %T, want *FileSystemStore", store)
		}
	})

	t.Run("filesystem requires a root", func(t *testing.T) {
		_, err := remote.NewStoreFromConfig(context.Background(),
			config.RemoteConfig{Type: "filesystem"}, testutil.FixedClock())
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for missing root")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := remote.NewStoreFromConfig(context.Background(),
			config.RemoteConfig{Type: "ftp"}, testutil.FixedClock())
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for unknown type")
		}
	})
}
