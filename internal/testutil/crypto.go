package testutil

import (
	"selfx-go/internal/archive"
	"selfx-go/internal/encryption"
	"selfx-go/internal/selfx"
)

// NewTestEncryptor creates a reversible header-only encryptor.
func NewTestEncryptor() selfx.Encryptor {
	return encryption.NewTestEncryptor()
}

// NewTestArchive creates an in-memory invoice archive.
func NewTestArchive() *archive.MemoryArchive {
	return archive.NewMemoryArchive()
}
