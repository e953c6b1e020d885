// Package cascade provides content-addressed storage for encrypted artifact
// blobs. Pointers have the form cascade://<64-char lowercase hex sha256>.
//
// Contents are opaque: the store never inspects or transforms bytes. Keeping
// anything unencrypted out of Put is the encryption layer's job.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Scheme is the pointer URI scheme.
const Scheme = "cascade"

// ErrNotFound is returned by Get when the digest is unknown.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidPointer is returned by Get for malformed or unsafe pointers.
var ErrInvalidPointer = errors.New("invalid pointer")

var pointerRe = regexp.MustCompile(`^cascade://([a-f0-9]{64})$`)

// Connector is the blob storage contract. FSConnector is the local
// implementation; a remote backend is a drop-in alternative.
type Connector interface {
	// Put persists the exact bytes given and returns their content-derived
	// pointer. Writing byte-identical content twice yields the same pointer.
	Put(ctx context.Context, data []byte) (string, error)

	// Get retrieves the bytes a pointer addresses.
	Get(ctx context.Context, pointer string) ([]byte, error)
}

// ParsePointer validates a pointer against the strict format and returns its
// hex digest. Any other shape, including digests carrying path separators or
// traversal sequences, fails with ErrInvalidPointer.
func ParsePointer(pointer string) (string, error) {
	m := pointerRe.FindStringSubmatch(pointer)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPointer, pointer)
	}
	return m[1], nil
}

// Pointer builds a pointer string from a hex digest.
func Pointer(digest string) string {
	return Scheme + "://" + digest
}
