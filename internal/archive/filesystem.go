package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"selfx-go/internal/selfx"
)

// FileSystemArchive stores one file per invoice under root:
//
//	<root>/
//	  <invoiceID>
type FileSystemArchive struct {
	root string
}

var _ selfx.InvoiceArchive = (*FileSystemArchive)(nil)

// NewFileSystemArchive creates the archive directory if needed.
func NewFileSystemArchive(root string) (*FileSystemArchive, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &FileSystemArchive{root: root}, nil
}

// PutInvoice writes the document atomically (temp file + rename). An existing
// document for the same invoice is replaced.
func (a *FileSystemArchive) PutInvoice(ctx context.Context, invoiceID string, r io.Reader, size int64) error {
	if err := checkInvoiceID(invoiceID); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(a.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, a.path(invoiceID)); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return nil
}

func (a *FileSystemArchive) GetInvoice(ctx context.Context, invoiceID string, w io.Writer) error {
	if err := checkInvoiceID(invoiceID); err != nil {
		return err
	}
	f, err := os.Open(a.path(invoiceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("invoice document %s: %w", invoiceID, selfx.ErrNotFound)
		}
		return fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the archive root is a writable directory.
func (a *FileSystemArchive) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(a.root)
	if err != nil {
		return fmt.Errorf("archive root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive root is not a directory: %s", a.root)
	}
	probe, err := os.CreateTemp(a.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("archive root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func (a *FileSystemArchive) path(invoiceID string) string {
	return filepath.Join(a.root, invoiceID)
}
