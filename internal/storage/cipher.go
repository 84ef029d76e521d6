package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltSize = 16
	keySize  = 32
)

// ErrInvalidCiphertext is returned when stored data is too short or
// fails authentication.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Cipher encrypts and decrypts store contents with an AES-256-GCM key
// derived from a secret via HKDF-SHA256. Each Seal uses a fresh salt,
// so the same secret never reuses a key/nonce combination.
type Cipher struct {
	secret []byte
}

// NewCipher creates a cipher for the given secret.
func NewCipher(secret string) *Cipher {
	return &Cipher{secret: []byte(secret)}
}

// deriveKey derives the AES key for one salt.
func (c *Cipher) deriveKey(salt []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, c.secret, salt, []byte("store-key"))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Seal encrypts plain. Output layout: salt || nonce || ciphertext.
func (c *Cipher) Seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

// Open decrypts data produced by Seal.
func (c *Cipher) Open(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, ErrInvalidCiphertext
	}
	salt := data[:saltSize]

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	rest := data[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, ErrInvalidCiphertext
	}
	nonce := rest[:gcm.NonceSize()]

	plain, err := gcm.Open(nil, nonce, rest[gcm.NonceSize():], nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plain, nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key, err := c.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
