package crypto

import (
	"os"

	"github.com/awnumar/memguard"
)

// Keychain holds the encryption key in an mlocked enclave between calls so
// the raw key bytes are never resident longer than a single seal/open. The
// key is never persisted.
type Keychain struct {
	enclave *memguard.Enclave
}

// NewKeychain validates the key and seals it into an enclave. The caller's
// copy remains untouched.
func NewKeychain(key []byte) (*Keychain, error) {
	if len(key) != KeySize {
		return nil, encErrf("key must be %d bytes (got %d)", KeySize, len(key))
	}
	buf := make([]byte, KeySize)
	copy(buf, key)
	// NewEnclave wipes buf after sealing.
	return &Keychain{enclave: memguard.NewEnclave(buf)}, nil
}

// LoadKeychain resolves the key from the LUMERA_MEMORY_KEY environment
// variable. Absence or wrong length is a configuration error surfaced here,
// not per request.
func LoadKeychain() (*Keychain, error) {
	key, err := ParseKey(os.Getenv(KeyEnv))
	if err != nil {
		return nil, err
	}
	return NewKeychain(key)
}

// Seal encrypts plaintext under the enclave key.
func (k *Keychain) Seal(plaintext []byte) ([]byte, error) {
	buf, err := k.enclave.Open()
	if err != nil {
		return nil, encErrf("key enclave open: %v", err)
	}
	defer buf.Destroy()
	return Encrypt(plaintext, buf.Bytes())
}

// Open decrypts a blob under the enclave key.
func (k *Keychain) Open(blob []byte) ([]byte, error) {
	buf, err := k.enclave.Open()
	if err != nil {
		return nil, encErrf("key enclave open: %v", err)
	}
	defer buf.Destroy()
	return Decrypt(blob, buf.Bytes())
}
