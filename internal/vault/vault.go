// Package vault encrypts bank account numbers before they touch the store.
// Plaintext IBANs never persist; only the engine holds the key.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "jobstream/pkg/domain-errors"
)

// Encrypter seals and opens sensitive strings.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// ChaChaVault encrypts with XChaCha20-Poly1305 under a single process key.
// Each call draws a fresh random nonce, so encrypting the same plaintext
// twice yields different ciphertexts.
type ChaChaVault struct {
	aead cipher.AEAD
}

// NewChaChaVault constructs a vault from a 32-byte key.
func NewChaChaVault(key []byte) (*ChaChaVault, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init vault cipher: %w", err)
	}
	return &ChaChaVault{aead: aead}, nil
}

func (v *ChaChaVault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("draw nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (v *ChaChaVault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "ciphertext malformed")
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", dErrors.New(dErrors.CodeBadRequest, "ciphertext truncated")
	}
	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "ciphertext rejected")
	}
	return string(plain), nil
}

// Noop passes values through unchanged. Development only.
type Noop struct{}

func (Noop) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (Noop) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
