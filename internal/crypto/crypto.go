// Package crypto provides AES-256-GCM authenticated encryption for artifact
// blobs. The output layout is nonce (12 bytes) followed by ciphertext and the
// GCM tag, so decryption is self-describing given only the key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// KeyEnv is the environment variable holding the hex-encoded 32-byte key.
const KeyEnv = "LUMERA_MEMORY_KEY"

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// EncryptionError covers bad keys, malformed blobs, and authentication
// failures. Callers match it with errors.As.
type EncryptionError struct {
	Msg string
}

func (e *EncryptionError) Error() string { return "encryption: " + e.Msg }

func encErrf(format string, args ...any) error {
	return &EncryptionError{Msg: fmt.Sprintf(format, args...)}
}

// ParseKey decodes a hex-encoded key and validates its length. It fails
// before any cryptographic call is attempted.
func ParseKey(keyHex string) ([]byte, error) {
	if keyHex == "" {
		return nil, encErrf("%s not set; generate one with: openssl rand -hex 32", KeyEnv)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, encErrf("%s must be a hex-encoded %d-byte key", KeyEnv, KeySize)
	}
	if len(key) != KeySize {
		return nil, encErrf("%s must be %d bytes (got %d)", KeyEnv, KeySize, len(key))
	}
	return key, nil
}

// Encrypt seals plaintext under the key with a fresh random nonce.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, encErrf("nonce generation failed: %v", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Wrong key, truncation, or any
// bit flip fails the authentication check.
func Decrypt(blob, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < gcm.NonceSize() {
		return nil, encErrf("blob too short (%d bytes)", len(blob))
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, encErrf("decryption failed (wrong key or tampered data)")
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, encErrf("key must be %d bytes (got %d)", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, encErrf("cipher init: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, encErrf("gcm init: %v", err)
	}
	return gcm, nil
}
