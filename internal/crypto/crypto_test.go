package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestRoundTrip(t *testing.T) {
	key := testKey()
	for _, plaintext := range [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xff}, 4096),
	} {
		blob, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		got, err := Decrypt(blob, key)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(plaintext))
		}
	}
}

func TestNonceRandomization(t *testing.T) {
	key := testKey()
	plaintext := []byte("same input")
	a, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestTamperDetection(t *testing.T) {
	key := testKey()
	blob, err := Encrypt([]byte("integrity matters"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for _, i := range []int{0, 5, len(blob) / 2, len(blob) - 1} {
		tampered := append([]byte(nil), blob...)
		tampered[i] ^= 0x01
		if _, err := Decrypt(tampered, key); err == nil {
			t.Errorf("bit flip at byte %d went undetected", i)
		}
	}
}

func TestWrongKey(t *testing.T) {
	blob, err := Encrypt([]byte("secret"), testKey())
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	other := testKey()
	other[0] ^= 0x01
	var encErr *EncryptionError
	if _, err := Decrypt(blob, other); !errors.As(err, &encErr) {
		t.Fatalf("expected EncryptionError for wrong key, got %v", err)
	}
}

func TestDecryptTruncated(t *testing.T) {
	if _, err := Decrypt([]byte{1, 2, 3}, testKey()); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestBadKeyLength(t *testing.T) {
	if _, err := Encrypt([]byte("x"), []byte("short")); err == nil {
		t.Error("expected error for short key")
	}
}

func TestParseKey(t *testing.T) {
	if _, err := ParseKey(""); err == nil {
		t.Error("expected error for unset key")
	}
	if _, err := ParseKey("not hex"); err == nil {
		t.Error("expected error for non-hex key")
	}
	if _, err := ParseKey("abcd"); err == nil {
		t.Error("expected error for wrong-length key")
	}
	key, err := ParseKey(hex.EncodeToString(testKey()))
	if err != nil {
		t.Fatalf("parse valid key: %v", err)
	}
	if len(key) != KeySize {
		t.Errorf("expected %d bytes, got %d", KeySize, len(key))
	}
}

func TestKeychainSealOpen(t *testing.T) {
	kc, err := NewKeychain(testKey())
	if err != nil {
		t.Fatalf("new keychain: %v", err)
	}
	plaintext := []byte("enclave round trip")

	// Seal/open twice to verify the enclave key survives reuse.
	for i := 0; i < 2; i++ {
		blob, err := kc.Seal(plaintext)
		if err != nil {
			t.Fatalf("seal %d: %v", i, err)
		}
		got, err := kc.Open(blob)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("seal/open %d mismatch", i)
		}
	}
}
