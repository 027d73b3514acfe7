package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"selfx-go/internal/config"
	"selfx-go/internal/selfx"
)

// NewStorageFromConfig creates a Storage based on the storage config type.
// Migrations are applied before the storage is returned.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig, instanceID string, clock selfx.Clock) (*Storage, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite storage")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteStorage(filepath.Join(cfg.DataDir, instanceID+".db"), clock)
	case "memory":
		return NewSQLiteStorage(":memory:", clock)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres storage")
		}
		return NewPostgresStorage(ctx, cfg.DSN, clock)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
