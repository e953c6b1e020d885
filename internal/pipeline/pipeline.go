// Package pipeline composes redaction, encryption, blob storage, and the
// local index into the store / query / retrieve operations, and enforces the
// privacy policy: artifact-only by default, raw export only behind the
// conjunctive opt-in gate, dry-run with no writes, fail-closed abort on
// critical secrets.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lumera-labs/cascade-memory/internal/adapter"
	"github.com/lumera-labs/cascade-memory/internal/cascade"
	"github.com/lumera-labs/cascade-memory/internal/crypto"
	"github.com/lumera-labs/cascade-memory/internal/enrich"
	"github.com/lumera-labs/cascade-memory/internal/index"
	"github.com/lumera-labs/cascade-memory/internal/model"
	"github.com/lumera-labs/cascade-memory/internal/redact"
)

// Pipeline wires explicitly constructed components; nothing here is a
// process-wide singleton. Lifecycle (open/close of the index) belongs to the
// host process.
type Pipeline struct {
	exporter adapter.Exporter
	blobs    cascade.Connector
	index    *index.SQLiteIndex
	keys     *crypto.Keychain
	log      *slog.Logger
}

// New builds a pipeline from its collaborators. A nil logger discards.
func New(exporter adapter.Exporter, blobs cascade.Connector, idx *index.SQLiteIndex, keys *crypto.Keychain, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{exporter: exporter, blobs: blobs, index: idx, keys: keys, log: log}
}

// StoreParams holds parameters for the store operation.
type StoreParams struct {
	SessionID      string
	Tags           []string
	AllowRawExport bool
	RawExportAck   string
	DryRun         bool
}

// Preview describes what a store would have written. WouldStore is always
// false: the dry-run branch performs no write to the blob store or index.
type Preview struct {
	ArtifactType    string   `json:"artifact_type"`
	Fields          []string `json:"fields"`
	Bytes           int      `json:"bytes"`
	PlaintextSHA256 string   `json:"plaintext_sha256"`
	ContentHash     string   `json:"content_hash"`
	WouldStore      bool     `json:"would_store"`
}

// StoreResult is the outcome of a store operation. Exactly one of Preview
// (dry-run) or Pointer (committed) is populated, so callers cannot mistake a
// preview for a commit.
type StoreResult struct {
	DryRun          bool             `json:"dry_run"`
	Preview         *Preview         `json:"preview,omitempty"`
	Pointer         string           `json:"pointer,omitempty"`
	RecordID        string           `json:"record_id,omitempty"`
	ArtifactType    string           `json:"artifact_type"`
	ContentHash     string           `json:"content_hash"`
	PlaintextSHA256 string           `json:"plaintext_sha256"`
	MemoryCard      model.MemoryCard `json:"memory_card"`
	RedactionReport []model.RuleHit  `json:"redaction_report"`
}

// Store runs export → redact → gate → assemble → encrypt → put → index.
// On a critical secret nothing is written and only the offending rule is
// reported back through the error.
func (p *Pipeline) Store(ctx context.Context, params StoreParams) (*StoreResult, error) {
	session, err := p.exporter.ExportSession(ctx, params.SessionID)
	if err != nil {
		return nil, fmt.Errorf("export session %s: %w", params.SessionID, err)
	}

	redacted, report, err := redact.Redact(session)
	if err != nil {
		return nil, err
	}

	card := enrich.GenerateMemoryCard(redacted.AsSession())

	// Conjunctive opt-in gate: both the flag and the exact acknowledgement
	// string, or the default stands.
	artifactType := model.ArtifactOnly
	var rawSession *model.RedactedSession
	if params.AllowRawExport && params.RawExportAck == model.RawExportAck {
		artifactType = model.RawPlusArtifact
		rawSession = redacted
	}

	payload := model.ArtifactPayload{
		ArtifactType:    artifactType,
		SessionID:       redacted.SessionID,
		Timestamp:       redacted.Timestamp,
		MemoryCard:      card,
		RedactionReport: report,
		Tags:            params.Tags,
		RawSession:      rawSession,
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}
	plainDigest := digest(plaintext)

	blob, err := p.keys.Seal(plaintext)
	if err != nil {
		return nil, err
	}
	contentHash := digest(blob)

	result := &StoreResult{
		ArtifactType:    artifactType,
		ContentHash:     contentHash,
		PlaintextSHA256: plainDigest,
		MemoryCard:      card,
		RedactionReport: report,
	}

	if params.DryRun {
		result.DryRun = true
		result.Preview = &Preview{
			ArtifactType:    artifactType,
			Fields:          payloadFields(&payload),
			Bytes:           len(plaintext),
			PlaintextSHA256: plainDigest,
			ContentHash:     contentHash,
			WouldStore:      false,
		}
		p.log.Debug("dry-run preview", "session_id", params.SessionID, "artifact_type", artifactType, "bytes", len(plaintext))
		return result, nil
	}

	pointer, err := p.blobs.Put(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	recordID, err := p.index.Add(ctx, index.AddParams{
		Pointer:         pointer,
		ContentHash:     contentHash,
		ArtifactType:    artifactType,
		Tags:            params.Tags,
		SourceSessionID: redacted.SessionID,
		SourceTool:      sourceTool(redacted),
		Title:           card.Title,
		Snippet:         snippet(card),
		Meta:            map[string]any{"memory_card": card},
	})
	if err != nil {
		return nil, fmt.Errorf("index record: %w", err)
	}

	result.Pointer = pointer
	result.RecordID = recordID
	p.log.Info("session stored",
		"session_id", params.SessionID, "pointer", pointer,
		"artifact_type", artifactType, "rules_fired", len(report))
	return result, nil
}

// QueryHit is the projection of an index record returned to callers: pointer
// and display metadata only, never blob content.
type QueryHit struct {
	Pointer      string   `json:"pointer"`
	ArtifactType string   `json:"artifact_type"`
	Title        string   `json:"title,omitempty"`
	Snippet      string   `json:"snippet,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CreatedAt    string   `json:"created_at"`
	Score        float64  `json:"score,omitempty"`
}

// Query searches the local index. It never touches the blob store and never
// decrypts.
func (p *Pipeline) Query(ctx context.Context, params index.QueryParams) ([]QueryHit, error) {
	records, err := p.index.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	hits := make([]QueryHit, 0, len(records))
	for _, r := range records {
		hits = append(hits, QueryHit{
			Pointer:      r.Pointer,
			ArtifactType: r.ArtifactType,
			Title:        r.Title,
			Snippet:      r.Snippet,
			Tags:         r.Tags,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339),
			Score:        r.Score,
		})
	}
	return hits, nil
}

// RetrieveResult carries the reconstructed payload plus integrity digests.
type RetrieveResult struct {
	Artifact model.ArtifactPayload `json:"artifact"`
	Crypto   CryptoReport          `json:"crypto"`
}

// CryptoReport reports decryption integrity for a retrieve.
type CryptoReport struct {
	Verified        bool   `json:"verified"`
	ContentHash     string `json:"content_hash"`
	PlaintextSHA256 string `json:"plaintext_sha256"`
}

// Retrieve fetches a blob by pointer, decrypts it, and reconstructs the
// artifact payload.
func (p *Pipeline) Retrieve(ctx context.Context, pointer string) (*RetrieveResult, error) {
	blob, err := p.blobs.Get(ctx, pointer)
	if err != nil {
		return nil, err
	}
	plaintext, err := p.keys.Open(blob)
	if err != nil {
		return nil, err
	}

	var payload model.ArtifactPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("deserialize payload: %w", err)
	}

	p.log.Debug("session retrieved", "pointer", pointer, "artifact_type", payload.ArtifactType)
	return &RetrieveResult{
		Artifact: payload,
		Crypto: CryptoReport{
			Verified:        true,
			ContentHash:     digest(blob),
			PlaintextSHA256: digest(plaintext),
		},
	}, nil
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func payloadFields(payload *model.ArtifactPayload) []string {
	fields := []string{"artifact_type", "session_id", "timestamp", "memory_card", "redaction_report", "tags"}
	if payload.RawSession != nil {
		fields = append(fields, "raw_session")
	}
	return fields
}

func snippet(card model.MemoryCard) string {
	bullets := card.SummaryBullets
	if len(bullets) > 2 {
		bullets = bullets[:2]
	}
	return strings.Join(bullets, " | ")
}

func sourceTool(r *model.RedactedSession) string {
	if r.ToolName == "" {
		return "unknown"
	}
	return r.ToolName
}
