// Package aesgcm implements the CredentialCipher port with AES-256-GCM.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

const (
	// KeySize is the required master key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes (96 bits).
	NonceSize = 12
)

// ErrInvalidKey is returned by New when the master key is not 32 bytes.
var ErrInvalidKey = errors.New("invalid master key: must be 32 bytes")

// Compile-time interface satisfaction check.
var _ driven.CredentialCipher = (*Cipher)(nil)

// Cipher seals credential strings with AES-256-GCM. The ciphertext and the
// nonce are returned separately so the store can persist them as a pair.
// A Cipher is immutable after construction and safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// New creates a Cipher from a 32-byte master key. The key is copied.
func New(masterKey []byte) (*Cipher, error) {
	return newWithRand(masterKey, rand.Reader)
}

func newWithRand(masterKey []byte, r io.Reader) (*Cipher, error) {
	if len(masterKey) != KeySize {
		return nil, ErrInvalidKey
	}

	key := make([]byte, KeySize)
	copy(key, masterKey)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &Cipher{aead: gcm, rand: r}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The returned ciphertext
// includes the GCM authentication tag.
func (c *Cipher) Encrypt(plaintext string) ([]byte, []byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, nil, fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt opens a ciphertext/nonce pair produced by Encrypt. A missing half
// of the pair, a nonce of the wrong size, a wrong key or any tampering all
// fail with an error wrapping model.ErrIntegrity.
func (c *Cipher) Decrypt(ciphertext, nonce []byte) (string, error) {
	if len(ciphertext) == 0 || len(nonce) == 0 {
		return "", fmt.Errorf("incomplete ciphertext/nonce pair: %w", model.ErrIntegrity)
	}
	if len(nonce) != NonceSize {
		return "", fmt.Errorf("nonce is %d bytes, want %d: %w", len(nonce), NonceSize, model.ErrIntegrity)
	}
	if len(ciphertext) < c.aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short: %w", model.ErrIntegrity)
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", model.ErrIntegrity)
	}

	return string(plaintext), nil
}
