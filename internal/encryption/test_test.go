package encryption

import (
	"bytes"
	"strings"
	"testing"

	"selfx-go/internal/config"
)

func TestTestEncryptor_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "document", input: []byte(`{"id":"inv-1"}`)},
		{name: "empty", input: []byte{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewTestEncryptor()

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Equal(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output is identical to plaintext")
			}

			dctx, err := e.Unlock("")
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}
			var decrypted bytes.Buffer
			if err := dctx.Decrypt(&encrypted, &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("Decrypt() = %q, want %q", decrypted.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_Passphrase(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := e.Unlock("wrong"); err == nil {
		t.Error("Unlock() with wrong passphrase should return error")
	}
	if _, err := e.Unlock("secret"); err != nil {
		t.Errorf("Unlock() error = %v", err)
	}
}

func TestTestDecryptionContext_RejectsPlaintext(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	err := (&TestDecryptionContext{}).Decrypt(strings.NewReader(`{"id":"inv-1"}`), &out)
	if err == nil {
		t.Error("Decrypt() of plaintext should return error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ     string
		wantNil bool
		wantErr bool
	}{
		{typ: "", wantNil: false},
		{typ: "age", wantNil: false},
		{typ: "test", wantNil: false},
		{typ: "none", wantNil: true},
		{typ: "rot13", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewEncryptorFromConfig(%q) error = %v, wantErr %v", tt.typ, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if (got == nil) != tt.wantNil {
			t.Errorf("NewEncryptorFromConfig(%q) = %v, wantNil %v", tt.typ, got, tt.wantNil)
		}
	}
}
