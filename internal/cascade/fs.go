package cascade

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSConnector stores blobs on the local filesystem under a storage root,
// sharded into two-level directories by the first two digest characters.
type FSConnector struct {
	root string
}

// NewFSConnector creates the storage root if needed.
func NewFSConnector(root string) (*FSConnector, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSConnector{root: abs}, nil
}

// Put writes the blob keyed by its sha256 digest. The write goes through a
// temp file and rename so a partially written blob is never addressable;
// concurrent puts of identical content converge on the same path.
func (c *FSConnector) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	dir := filepath.Join(c.root, digest[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	path := filepath.Join(dir, digest)

	// Content-addressed: an existing file already holds these exact bytes.
	if _, err := os.Stat(path); err == nil {
		return Pointer(digest), nil
	}

	tmp, err := os.CreateTemp(dir, "."+digest+".tmp-")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit blob: %w", err)
	}
	return Pointer(digest), nil
}

// Get validates the pointer, verifies the resolved path is still contained
// in the storage root, and reads the blob. The containment check is defense
// in depth on top of the format check.
func (c *FSConnector) Get(ctx context.Context, pointer string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	digest, err := ParsePointer(pointer)
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(digest, `/\`) || strings.Contains(digest, "..") {
		return nil, fmt.Errorf("%w: unsafe characters in %q", ErrInvalidPointer, pointer)
	}

	path := filepath.Join(c.root, digest[:2], digest)
	resolved, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(resolved, c.root+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: escapes storage root: %q", ErrInvalidPointer, pointer)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, pointer)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Stats reports blob count and total bytes under the storage root.
func (c *FSConnector) Stats() (count int, bytes int64, err error) {
	err = filepath.WalkDir(c.root, func(path string, d os.DirEntry, werr error) error {
		if werr != nil || d.IsDir() {
			return werr
		}
		info, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		count++
		bytes += info.Size()
		return nil
	})
	return count, bytes, err
}
