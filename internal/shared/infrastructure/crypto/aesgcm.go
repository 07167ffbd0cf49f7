// Package crypto seals small secrets, such as captured request credentials,
// before they are written to durable storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidCiphertext is returned when sealed data cannot be opened.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Sealer seals and opens data bound to associated data.
type Sealer interface {
	Seal(plaintext, associated []byte) (string, error)
	Open(sealed string, associated []byte) ([]byte, error)
}

// AESGCM seals with AES-256-GCM. Output is base64(nonce || ciphertext) so it
// fits in a TEXT column or a Redis hash field.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCMFromBase64Key creates an AESGCM sealer from a base64-encoded 32-byte key.
func NewAESGCMFromBase64Key(encodedKey string) (*AESGCM, error) {
	if encodedKey == "" {
		return nil, errors.New("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{aead: aead}, nil
}

// GenerateKey returns a fresh random key in the encoding NewAESGCMFromBase64Key expects.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext with a random nonce.
func (s *AESGCM) Seal(plaintext, associated []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, plaintext, associated)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Tampering, a wrong key or mismatched associated data
// all yield ErrInvalidCiphertext.
func (s *AESGCM) Open(sealed string, associated []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, fmt.Errorf("%w: too short", ErrInvalidCiphertext)
	}
	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], associated)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return plaintext, nil
}
