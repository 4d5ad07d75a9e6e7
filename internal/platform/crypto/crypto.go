// Package crypto seals OAuth access tokens before they are written to a
// shared session backend.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const keySize = 32

var ErrMalformed = errors.New("sealed value is malformed")

// TokenCipher seals a token to an associated value, usually the session ID.
// Open fails when the associated value differs from the one used to seal.
type TokenCipher interface {
	Seal(plaintext string, associated []byte) (string, error)
	Open(sealed string, associated []byte) (string, error)
}

// Plaintext stores tokens as-is. Used when no key is configured.
type Plaintext struct{}

func (Plaintext) Seal(plaintext string, _ []byte) (string, error) { return plaintext, nil }
func (Plaintext) Open(sealed string, _ []byte) (string, error)    { return sealed, nil }

type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM expects a hex-encoded 32 byte key.
func NewAESGCM(hexKey string) (*AESGCM, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid key hex: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

// Seal returns base64(nonce || ciphertext || tag).
func (c *AESGCM) Seal(plaintext string, associated []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), associated)
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (c *AESGCM) Open(sealed string, associated []byte) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	n := c.aead.NonceSize()
	if len(buf) < n+c.aead.Overhead() {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, buf[:n], buf[n:], associated)
	if err != nil {
		return "", fmt.Errorf("failed to open token: %w", err)
	}
	return string(plain), nil
}

// New picks AESGCM when a key is set and Plaintext otherwise.
func New(hexKey string) (TokenCipher, error) {
	if hexKey == "" {
		return Plaintext{}, nil
	}
	return NewAESGCM(hexKey)
}
