// Package model defines the core session and artifact data types.
package model

import "encoding/json"

// Artifact types. ArtifactOnly is the default; RawPlusArtifact requires the
// caller to pass both the opt-in flag and the risk acknowledgement string.
const (
	ArtifactOnly    = "artifact_only"
	RawPlusArtifact = "raw_plus_artifact"
)

// RawExportAck is the literal acknowledgement a caller must supply, together
// with the allow flag, before a redacted raw session is embedded in the payload.
const RawExportAck = "I understand the risk"

// Session is a tool-execution record exported from the session source.
// Known fields are typed; everything else lands in Extra and is always
// dropped by redaction (default-deny).
type Session struct {
	SessionID     string   `json:"session_id"`
	Timestamp     string   `json:"timestamp,omitempty"`
	ToolName      string   `json:"tool_name,omitempty"`
	Success       bool     `json:"success"`
	Summary       string   `json:"summary,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	SchemaVersion string   `json:"schema_version,omitempty"`

	Extra map[string]any `json:"-"`
}

// sessionFields are the JSON keys that map to typed Session fields.
var sessionFields = map[string]bool{
	"session_id":     true,
	"timestamp":      true,
	"tool_name":      true,
	"success":        true,
	"summary":        true,
	"tags":           true,
	"schema_version": true,
}

// UnmarshalJSON decodes known fields into their typed slots and collects
// everything else into Extra.
func (s *Session) UnmarshalJSON(data []byte) error {
	type plain Session
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Session(p)

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if sessionFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		if s.Extra == nil {
			s.Extra = map[string]any{}
		}
		s.Extra[k] = val
	}
	return nil
}

// RedactedSession is a Session projected down to the allow-listed field set,
// with every string value passed through pattern substitution.
type RedactedSession struct {
	SessionID     string   `json:"session_id"`
	Timestamp     string   `json:"timestamp,omitempty"`
	ToolName      string   `json:"tool_name,omitempty"`
	Success       bool     `json:"success"`
	Summary       string   `json:"summary,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	SchemaVersion string   `json:"schema_version,omitempty"`
}

// AsSession re-widens a redacted session so text-heuristic consumers (the
// memory card generator) can run on post-redaction content only.
func (r *RedactedSession) AsSession() *Session {
	return &Session{
		SessionID:     r.SessionID,
		Timestamp:     r.Timestamp,
		ToolName:      r.ToolName,
		Success:       r.Success,
		Summary:       r.Summary,
		Tags:          r.Tags,
		SchemaVersion: r.SchemaVersion,
	}
}

// RuleHit records one redaction rule that fired and how many substitutions
// it made.
type RuleHit struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// MemoryCard is the deterministic summary generated from a session.
type MemoryCard struct {
	Title          string   `json:"title"`
	SummaryBullets []string `json:"summary_bullets"`
	Decisions      []string `json:"decisions"`
	Todos          []string `json:"todos"`
	Entities       []string `json:"entities"`
	Keywords       []string `json:"keywords"`
	NotableQuotes  []string `json:"notable_quotes"`
}

// ArtifactPayload is the durable representation of a session. RawSession is
// present if and only if ArtifactType is RawPlusArtifact.
type ArtifactPayload struct {
	ArtifactType    string           `json:"artifact_type"`
	SessionID       string           `json:"session_id"`
	Timestamp       string           `json:"timestamp"`
	MemoryCard      MemoryCard       `json:"memory_card"`
	RedactionReport []RuleHit        `json:"redaction_report"`
	Tags            []string         `json:"tags"`
	RawSession      *RedactedSession `json:"raw_session,omitempty"`
}
