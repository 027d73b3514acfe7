package encryption

import (
	"fmt"

	"selfx-go/internal/config"
	"selfx-go/internal/selfx"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor: archived invoices are stored in clear.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (selfx.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
