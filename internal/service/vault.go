package service

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var errCiphertextTooShort = errors.New("ciphertext too short")

// TokenVault seals OAuth tokens before they reach the database.
type TokenVault struct {
	key []byte
}

// NewTokenVault derives a 256-bit key from the configured secret.
func NewTokenVault(secret string) (*TokenVault, error) {
	if secret == "" {
		return nil, errors.New("token encryption key is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("calendar-oauth-token"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &TokenVault{key: key}, nil
}

// Seal encrypts plaintext as nonce||ciphertext using XChaCha20-Poly1305.
func (v *TokenVault) Seal(plaintext string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a value produced by Seal.
func (v *TokenVault) Open(sealed []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", errCiphertextTooShort
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return string(plaintext), nil
}
