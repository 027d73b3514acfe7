package archive

import (
	"context"
	"fmt"

	"selfx-go/internal/config"
	"selfx-go/internal/selfx"
)

// NewArchiveFromConfig creates an InvoiceArchive based on the archive config type.
// An empty type disables archiving and returns a nil archive.
func NewArchiveFromConfig(ctx context.Context, cfg config.ArchiveConfig) (selfx.InvoiceArchive, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryArchive(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem archive requires fs_root to be set")
		}
		a, err := NewFileSystemArchive(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "s3":
		a, err := NewS3Archive(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
