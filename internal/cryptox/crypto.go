// Package cryptox implements key derivation and the sealed record format
// used for events at rest.
//
// A record is 12-byte nonce || AES-256-GCM ciphertext+tag. The key is derived
// once per store instance from a passphrase and a per-store random salt.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// SaltSize is the length of the per-store key-derivation salt.
	SaltSize = 16

	nonceSize = 12
)

// ErrDecryption marks ciphertext that could not be opened: wrong key,
// truncated data, or a failed authentication tag. Callers treat it as
// "record unreadable" and fall back to backup recovery, never as fatal.
var ErrDecryption = errors.New("decryption failed")

// DeriveKey derives a 32-byte AES key from a passphrase and salt using
// argon2id (t=1, m=64MiB, p=4).
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// NewSalt returns a fresh random key-derivation salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Cipher seals and opens records with a fixed key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher around an AES-256-GCM AEAD for the given key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce and returns
// nonce || ciphertext+tag.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a record produced by Seal. Any malformed or tampered input
// yields ErrDecryption.
func (c *Cipher) Open(record []byte) ([]byte, error) {
	if len(record) < nonceSize {
		return nil, fmt.Errorf("%w: record too short", ErrDecryption)
	}
	nonce, ciphertext := record[:nonceSize], record[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}
