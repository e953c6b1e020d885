package adapter

import (
	"context"
	"errors"
	"testing"
)

func TestFixtureExportSession(t *testing.T) {
	exp := NewFixtureExporter()

	s, err := exp.ExportSession(context.Background(), "test-session-001")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if s.SessionID != "test-session-001" || s.ToolName != "baseline-forecaster" {
		t.Errorf("unexpected session: %+v", s)
	}
	if !s.Success {
		t.Error("fixture 001 should be a successful session")
	}

	s3, err := exp.ExportSession(context.Background(), "test-session-003")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if s3.Success {
		t.Error("fixture 003 should be a failed session")
	}
}

func TestFixtureExportReturnsCopy(t *testing.T) {
	exp := NewFixtureExporter()

	a, _ := exp.ExportSession(context.Background(), "test-session-001")
	a.Summary = "mutated"
	a.Tags[0] = "mutated"

	b, _ := exp.ExportSession(context.Background(), "test-session-001")
	if b.Summary == "mutated" || b.Tags[0] == "mutated" {
		t.Error("fixture table was mutated through an exported session")
	}
}

func TestFixtureUnknownSession(t *testing.T) {
	exp := NewFixtureExporter()
	_, err := exp.ExportSession(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
