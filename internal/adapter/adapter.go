// Package adapter exports session records from the cm memory system,
// falling back to static fixtures when the cm CLI is not installed.
package adapter

import (
	"context"
	"errors"

	"github.com/lumera-labs/cascade-memory/internal/model"
)

// ErrSessionNotFound means the session id is unknown to the source. Exporter
// service faults (timeout, bad output) are reported as distinct errors.
var ErrSessionNotFound = errors.New("session not found")

// Exporter fetches raw session data by id.
type Exporter interface {
	ExportSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// FixtureExporter serves sessions from a static table.
type FixtureExporter struct {
	sessions map[string]*model.Session
}

// NewFixtureExporter returns an exporter over the built-in test sessions.
func NewFixtureExporter() *FixtureExporter {
	return &FixtureExporter{sessions: fixtureSessions}
}

// ExportSession returns a copy of the fixture session.
func (f *FixtureExporter) ExportSession(_ context.Context, sessionID string) (*model.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	cp.Tags = append([]string(nil), s.Tags...)
	return &cp, nil
}

var fixtureSessions = map[string]*model.Session{
	"test-session-001": {
		SessionID: "test-session-001",
		Timestamp: "2025-12-20T10:00:00Z",
		ToolName:  "baseline-forecaster",
		Success:   true,
		Summary:   "Ran M4 baseline forecast with AutoETS and AutoTheta models",
		Tags:      []string{"baseline", "m4", "statsforecast", "test"},
	},
	"test-session-002": {
		SessionID: "test-session-002",
		Timestamp: "2025-12-20T11:30:00Z",
		ToolName:  "bigquery-sync",
		Success:   true,
		Summary:   "Synced forecast results to BigQuery dataset",
		Tags:      []string{"bigquery", "sync", "test"},
	},
	"test-session-003": {
		SessionID: "test-session-003",
		Timestamp: "2025-12-20T14:15:00Z",
		ToolName:  "timegpt-forecast",
		Success:   false,
		Summary:   "TimeGPT API request failed due to rate limit",
		Tags:      []string{"timegpt", "api-error", "test"},
	},
}
