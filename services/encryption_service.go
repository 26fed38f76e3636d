package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"cyber_case_app_go/config"
)

var (
	// ErrInvalidCiphertext indicates the ciphertext is malformed or too short
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrCiphertextAuthentication indicates the GCM tag did not verify: the
	// stored bytes were modified or sealed under another key
	ErrCiphertextAuthentication = errors.New("ciphertext authentication failed")
)

// EvidenceCipher seals evidence bytes with AES-256-GCM. The nonce is
// prepended to the ciphertext. A cipher is built once at startup and handed
// to the components that need it; it holds no mutable state.
type EvidenceCipher struct {
	aead cipher.AEAD
}

// NewEvidenceCipher builds a cipher from a raw 32-byte key
func NewEvidenceCipher(key []byte) (*EvidenceCipher, error) {
	if len(key) != config.EncryptionKeyLength {
		return nil, fmt.Errorf("encryption key must be %d bytes (got %d bytes)", config.EncryptionKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &EvidenceCipher{aead: gcm}, nil
}

// NewEvidenceCipherFromBase64 decodes a base64 key as found in ENCRYPTION_KEY
func NewEvidenceCipherFromBase64(encoded string) (*EvidenceCipher, error) {
	key, err := config.DecodeEncryptionKey(encoded)
	if err != nil {
		return nil, err
	}
	return NewEvidenceCipher(key)
}

// Encrypt seals plaintext under a fresh random nonce
func (c *EvidenceCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt
func (c *EvidenceCipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < c.aead.NonceSize()+c.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrCiphertextAuthentication
	}
	return plaintext, nil
}

// GenerateEncryptionKey generates a new random 32-byte key for AES-256 and returns it as base64.
// Use this to generate a key for the ENCRYPTION_KEY environment variable.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, config.EncryptionKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
