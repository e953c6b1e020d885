// Package index provides the local searchable index over blob pointers.
//
// The index holds pointers and display metadata only. Blob content, encrypted
// or decrypted, never enters an index row.
package index

import (
	"errors"
	"time"
)

// ErrDuplicatePointer is returned by Add when the pointer is already indexed.
var ErrDuplicatePointer = errors.New("pointer already indexed")

// MemoryRecord is one index row. Owned exclusively by the index: created on
// store, read on query/retrieve, deleted explicitly.
type MemoryRecord struct {
	ID              string         `json:"id"`
	Pointer         string         `json:"pointer"`
	ContentHash     string         `json:"content_hash"`
	ArtifactType    string         `json:"artifact_type"`
	Tags            []string       `json:"tags,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	SourceSessionID string         `json:"source_session_id,omitempty"`
	SourceTool      string         `json:"source_tool,omitempty"`
	Title           string         `json:"title,omitempty"`
	Snippet         string         `json:"snippet,omitempty"`
	Meta            map[string]any `json:"metadata,omitempty"`
	Score           float64        `json:"score,omitempty"`
}

// AddParams holds parameters for indexing a stored artifact.
type AddParams struct {
	Pointer         string
	ContentHash     string
	ArtifactType    string
	Tags            []string
	SourceSessionID string
	SourceTool      string
	Title           string
	Snippet         string
	Meta            map[string]any
}

// QueryParams holds parameters for searching the index. Text, Tags, and the
// time range combine conjunctively; multiple tags match any (substring).
type QueryParams struct {
	Text      string
	Tags      []string
	SessionID string
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}
