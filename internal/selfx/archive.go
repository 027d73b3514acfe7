package selfx

import (
	"context"
	"io"
)

// InvoiceArchive keeps the documents of emitted invoices. Documents are keyed
// by invoice id and written once; storing an id again replaces the document.
type InvoiceArchive interface {
	// PutInvoice stores the document read from r. size is the number of bytes
	// that will be read.
	PutInvoice(ctx context.Context, invoiceID string, r io.Reader, size int64) error

	// GetInvoice writes the stored document to w. It fails with ErrNotFound
	// when nothing is stored under invoiceID.
	GetInvoice(ctx context.Context, invoiceID string, w io.Writer) error

	// ValidateSetup verifies that the archive is reachable and usable.
	ValidateSetup(ctx context.Context) error
}

// Encryptor encrypts archived invoice documents with a public key.
// Decryption requires a passphrase to unlock the private key.
type Encryptor interface {
	// Setup generates a key pair and protects the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a DecryptionContext.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
