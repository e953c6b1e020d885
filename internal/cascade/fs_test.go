package cascade

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestConnector(t *testing.T) *FSConnector {
	t.Helper()
	c, err := NewFSConnector(t.TempDir())
	if err != nil {
		t.Fatalf("create connector: %v", err)
	}
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestConnector(t)

	data := []byte("opaque encrypted bytes")
	pointer, err := c.Put(ctx, data)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := ParsePointer(pointer); err != nil {
		t.Fatalf("put returned malformed pointer %q: %v", pointer, err)
	}

	got, err := c.Get(ctx, pointer)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("retrieved bytes differ from stored bytes")
	}
}

func TestPutIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestConnector(t)

	data := []byte("same content")
	p1, err := c.Put(ctx, data)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	p2, err := c.Put(ctx, data)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if p1 != p2 {
		t.Errorf("identical content produced different pointers: %s vs %s", p1, p2)
	}

	// No duplicate files and no leftover temp files.
	files := 0
	filepath.WalkDir(c.root, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
			if strings.Contains(d.Name(), ".tmp-") {
				t.Errorf("leftover temp file: %s", path)
			}
		}
		return nil
	})
	if files != 1 {
		t.Errorf("expected 1 blob file, found %d", files)
	}
}

func TestDistinctContentDistinctPointers(t *testing.T) {
	ctx := context.Background()
	c := newTestConnector(t)

	p1, _ := c.Put(ctx, []byte("a"))
	p2, _ := c.Put(ctx, []byte("b"))
	if p1 == p2 {
		t.Error("distinct content produced the same pointer")
	}
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	c := newTestConnector(t)

	missing := Pointer(strings.Repeat("ab", 32))
	_, err := c.Get(ctx, missing)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidPointers(t *testing.T) {
	ctx := context.Background()
	c := newTestConnector(t)

	cases := []string{
		"",
		"cascade://",
		"cascade://../../etc/passwd",
		"cascade://..%2f..%2fetc%2fpasswd",
		"other://" + strings.Repeat("ab", 32),
		"cascade://" + strings.Repeat("AB", 32), // uppercase hex
		"cascade://" + strings.Repeat("ab", 16), // too short
		"cascade://" + strings.Repeat("ab", 32) + "/x",
		"cascade://" + strings.Repeat("zz", 32), // non-hex
	}
	for _, pointer := range cases {
		if _, err := c.Get(ctx, pointer); !errors.Is(err, ErrInvalidPointer) {
			t.Errorf("pointer %q: expected ErrInvalidPointer, got %v", pointer, err)
		}
	}
}

func TestGetNeverLeavesRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c, err := NewFSConnector(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatalf("create connector: %v", err)
	}

	// A sibling file outside the storage root must be unreachable.
	outside := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(outside, []byte("leak"), 0o600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	if _, err := c.Get(ctx, "cascade://../secret.txt"); !errors.Is(err, ErrInvalidPointer) {
		t.Fatalf("expected ErrInvalidPointer, got %v", err)
	}
}

func TestParsePointer(t *testing.T) {
	digest := strings.Repeat("0f", 32)
	got, err := ParsePointer("cascade://" + digest)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != digest {
		t.Errorf("expected digest %s, got %s", digest, got)
	}
}
