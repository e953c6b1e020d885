// Package mcp exposes the memory pipeline as MCP tools over stdio.
//
// Every tool returns a JSON envelope with an "ok" boolean and an "error"
// string on failure; no internal fault crosses the protocol boundary as an
// exception.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lumera-labs/cascade-memory/internal/index"
	"github.com/lumera-labs/cascade-memory/internal/pipeline"
)

// Server wraps an MCP stdio server around a pipeline.
type Server struct {
	pipe *pipeline.Pipeline
	log  *slog.Logger
	mcp  *server.MCPServer
}

// NewServer registers the four memory tools.
func NewServer(pipe *pipeline.Pipeline, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		pipe: pipe,
		log:  log,
		mcp: server.NewMCPServer("cascade-memory", version,
			server.WithToolCapabilities(false),
			server.WithRecovery()),
	}

	s.mcp.AddTool(mcpgo.NewTool("store_session",
		mcpgo.WithDescription("Store session data with redaction and encryption. "+
			"Returns a pointer for later retrieval. WARNING: storage is immutable."),
		mcpgo.WithString("session_id", mcpgo.Required(), mcpgo.Description("Session ID to store")),
		mcpgo.WithArray("tags", mcpgo.Description("Tags for categorization (optional)"),
			mcpgo.Items(map[string]any{"type": "string"})),
		mcpgo.WithBoolean("allow_raw_export",
			mcpgo.Description("Opt in to embedding the redacted raw session in the artifact")),
		mcpgo.WithString("raw_export_ack",
			mcpgo.Description(`Risk acknowledgement; must be exactly "I understand the risk"`)),
		mcpgo.WithBoolean("dry_run", mcpgo.Description("Preview the would-be artifact without writing")),
	), s.handleStore)

	s.mcp.AddTool(mcpgo.NewTool("query_memories",
		mcpgo.WithDescription("Query the local index for memory pointers. "+
			"Local index only: never touches the blob store, never decrypts."),
		mcpgo.WithString("query", mcpgo.Description("Free-text search over title and snippet")),
		mcpgo.WithArray("tags", mcpgo.Description("Filter by tags (substring match)"),
			mcpgo.Items(map[string]any{"type": "string"})),
		mcpgo.WithString("session_id", mcpgo.Description("Filter by source session ID")),
		mcpgo.WithString("since", mcpgo.Description("Inclusive lower time bound, RFC3339")),
		mcpgo.WithString("until", mcpgo.Description("Inclusive upper time bound, RFC3339")),
		mcpgo.WithNumber("limit", mcpgo.Description("Max results (default 10)")),
		mcpgo.WithNumber("offset", mcpgo.Description("Results to skip")),
	), s.handleQuery)

	s.mcp.AddTool(mcpgo.NewTool("retrieve_session",
		mcpgo.WithDescription("Retrieve and decrypt a stored artifact by pointer."),
		mcpgo.WithString("pointer", mcpgo.Required(), mcpgo.Description("Pointer (cascade://...)")),
	), s.handleRetrieve)

	s.mcp.AddTool(mcpgo.NewTool("estimate_storage_cost",
		mcpgo.WithDescription("Estimate monthly storage cost (heuristic, mock pricing)."),
		mcpgo.WithNumber("bytes", mcpgo.Required(), mcpgo.Description("Data size in bytes")),
		mcpgo.WithNumber("redundancy", mcpgo.Description("Replication factor (default 3)")),
	), s.handleEstimate)

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleStore(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return fail("session_id is required"), nil
	}
	args := req.GetArguments()

	result, err := s.pipe.Store(ctx, pipeline.StoreParams{
		SessionID:      sessionID,
		Tags:           stringSlice(args["tags"]),
		AllowRawExport: boolArg(args["allow_raw_export"]),
		RawExportAck:   stringArg(args["raw_export_ack"]),
		DryRun:         boolArg(args["dry_run"]),
	})
	if err != nil {
		s.log.Warn("store failed", "session_id", sessionID, "error", err)
		return fail("storage failed: " + err.Error()), nil
	}

	if result.DryRun {
		return envelope(map[string]any{
			"ok":          true,
			"dry_run":     true,
			"preview":     result.Preview,
			"memory_card": result.MemoryCard,
			"redaction":   map[string]any{"rules_fired": result.RedactionReport},
		}), nil
	}
	return envelope(map[string]any{
		"ok":               true,
		"pointer":          result.Pointer,
		"artifact_type":    result.ArtifactType,
		"content_hash":     result.ContentHash,
		"plaintext_sha256": result.PlaintextSHA256,
		"indexed":          true,
	}), nil
}

func (s *Server) handleQuery(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := req.GetArguments()

	params := index.QueryParams{
		Text:      stringArg(args["query"]),
		Tags:      stringSlice(args["tags"]),
		SessionID: stringArg(args["session_id"]),
		Limit:     intArg(args["limit"]),
		Offset:    intArg(args["offset"]),
	}
	var err error
	if params.Since, err = timeArg(args["since"]); err != nil {
		return fail("invalid since: " + err.Error()), nil
	}
	if params.Until, err = timeArg(args["until"]); err != nil {
		return fail("invalid until: " + err.Error()), nil
	}

	hits, err := s.pipe.Query(ctx, params)
	if err != nil {
		s.log.Warn("query failed", "error", err)
		return fail("query failed: " + err.Error()), nil
	}
	return envelope(map[string]any{
		"ok":       true,
		"memories": hits,
		"count":    len(hits),
	}), nil
}

func (s *Server) handleRetrieve(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	pointer, err := req.RequireString("pointer")
	if err != nil {
		return fail("pointer is required"), nil
	}

	result, err := s.pipe.Retrieve(ctx, pointer)
	if err != nil {
		s.log.Warn("retrieve failed", "pointer", pointer, "error", err)
		return fail("retrieval failed: " + err.Error()), nil
	}
	return envelope(map[string]any{
		"ok":       true,
		"artifact": result.Artifact,
		"crypto":   result.Crypto,
	}), nil
}

func (s *Server) handleEstimate(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := req.GetArguments()
	size, ok := args["bytes"].(float64)
	if !ok {
		return fail("bytes is required"), nil
	}
	est := pipeline.EstimateCost(int64(size), intArg(args["redundancy"]))
	return envelope(map[string]any{
		"ok":             true,
		"estimated_cost": est.EstimatedCost,
		"currency":       est.Currency,
		"period":         est.Period,
		"disclaimer":     est.Disclaimer,
	}), nil
}

func envelope(v any) *mcpgo.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpgo.NewToolResultText(fmt.Sprintf(`{"ok":false,"error":"encode response: %v"}`, err))
	}
	return mcpgo.NewToolResultText(string(b))
}

func fail(msg string) *mcpgo.CallToolResult {
	return envelope(map[string]any{"ok": false, "error": msg})
}

func stringArg(v any) string {
	s, _ := v.(string)
	return s
}

func boolArg(v any) bool {
	b, _ := v.(bool)
	return b
}

func intArg(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeArg(v any) (time.Time, error) {
	s := stringArg(v)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
