package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"selfx-go/internal/selfx"
)

// testHeader marks documents written by TestEncryptor.
var testHeader = []byte("SELFXENC\n")

// TestEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// It prefixes a header on encryption and requires it on decryption. A
// passphrase set through Setup must be given back to Unlock.
type TestEncryptor struct {
	passphrase string
}

var _ selfx.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (selfx.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, fmt.Errorf("incorrect passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the header written by TestEncryptor.
type TestDecryptionContext struct{}

var _ selfx.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(br, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, br); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
