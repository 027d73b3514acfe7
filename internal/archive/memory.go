package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"selfx-go/internal/selfx"
)

// MemoryArchive keeps invoice documents in memory. It is safe for concurrent use.
type MemoryArchive struct {
	mu        sync.RWMutex
	documents map[string][]byte // invoice id -> document
}

var _ selfx.InvoiceArchive = (*MemoryArchive)(nil)

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{documents: make(map[string][]byte)}
}

func (m *MemoryArchive) PutInvoice(ctx context.Context, invoiceID string, r io.Reader, size int64) error {
	if err := checkInvoiceID(invoiceID); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[invoiceID] = data
	return nil
}

func (m *MemoryArchive) GetInvoice(ctx context.Context, invoiceID string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.documents[invoiceID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("invoice document %s: %w", invoiceID, selfx.ErrNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

func (m *MemoryArchive) ValidateSetup(ctx context.Context) error {
	return nil
}
