package testutil

import (
	"sync"
	"testing"
	"time"

	"selfx-go/internal/database"
	"selfx-go/internal/selfx"
)

// NewTestStorage creates an in-memory SQLite storage with migrations applied.
// Its clock ticks one second per reading starting at 2024-03-01 09:00 UTC.
// The storage is closed when the test completes.
func NewTestStorage(t *testing.T) *database.Storage {
	t.Helper()

	s, err := database.NewSQLiteStorage(":memory:", NewTickingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Second))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// SpyStorage wraps a Storage and counts accessor calls.
type SpyStorage struct {
	selfx.Storage

	mu    sync.Mutex
	calls map[string]int
}

func NewSpyStorage(inner selfx.Storage) *SpyStorage {
	return &SpyStorage{Storage: inner, calls: make(map[string]int)}
}

// Calls returns how often the named accessor ("Tasks", "Wallets", ...) was used.
func (s *SpyStorage) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *SpyStorage) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *SpyStorage) Projects() selfx.Projects {
	s.record("Projects")
	return s.Storage.Projects()
}

func (s *SpyStorage) Contributors() selfx.Contributors {
	s.record("Contributors")
	return s.Storage.Contributors()
}

func (s *SpyStorage) Contracts() selfx.Contracts {
	s.record("Contracts")
	return s.Storage.Contracts()
}

func (s *SpyStorage) Invoices() selfx.Invoices {
	s.record("Invoices")
	return s.Storage.Invoices()
}

func (s *SpyStorage) Payments() selfx.Payments {
	s.record("Payments")
	return s.Storage.Payments()
}

func (s *SpyStorage) Wallets() selfx.Wallets {
	s.record("Wallets")
	return s.Storage.Wallets()
}

func (s *SpyStorage) Tasks() selfx.Tasks {
	s.record("Tasks")
	return s.Storage.Tasks()
}

var _ selfx.Storage = (*SpyStorage)(nil)
