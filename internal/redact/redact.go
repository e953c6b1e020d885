// Package redact implements the fail-closed redaction layer for session data.
//
// Critical patterns (private keys, Authorization headers) abort the entire
// operation. Redactable patterns (API keys, emails, ...) are replaced with
// typed placeholders and counted in the redaction report. After substitution
// the session is projected down to an allow-listed field set; anything else,
// including the whole Extra bucket, is dropped.
package redact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lumera-labs/cascade-memory/internal/model"
)

// ErrMissingRequiredField is returned when session_id is absent. This is a
// hard input error, not a redaction.
var ErrMissingRequiredField = errors.New("session_id is required but missing")

// CriticalSecretError aborts storage. No partial output is produced when
// a critical pattern matches anywhere in the session, including fields that
// projection would have dropped.
type CriticalSecretError struct {
	Rule string
}

func (e *CriticalSecretError) Error() string {
	return fmt.Sprintf("critical secret detected (rule %s): aborting storage, clean source data and retry", e.Rule)
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Critical patterns: cryptographic material and auth credentials that must
// never reach durable storage, even encrypted.
var criticalPatterns = []pattern{
	{"private_key", regexp.MustCompile(`-----BEGIN\s+(?:[A-Z0-9]+\s+)*PRIVATE KEY(?: BLOCK)?-----`)},
	{"authorization_header", regexp.MustCompile(`(?i)Authorization:\s*(?:Bearer|Basic)\s+[A-Za-z0-9\-._~+/]+=*`)},
}

// Redactable patterns, applied in order. Longer/more specific patterns come
// before the generic ones they could overlap with (jwt before bearer_token,
// credit_card before phone).
var redactablePatterns = []pattern{
	{"api_key", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)[=:]\s*['"]?[A-Za-z0-9]{32,}`)},
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws_secret_key", regexp.MustCompile(`(?i)(?:aws_secret|aws[_-]secret[_-]key)[=:]\s*['"]?[A-Za-z0-9/+=]{40}`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)},
	{"bearer_token", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"credit_card", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{"ip_address", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"phone", regexp.MustCompile(`\b\+?\d{1,2}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

// placeholder returns the typed substitution token for a rule, e.g.
// "<REDACTED:EMAIL>" for rule "email".
func placeholder(rule string) string {
	return "<REDACTED:" + strings.ToUpper(rule) + ">"
}

// DetectCritical recursively scans the session, including the untrusted Extra
// bucket, for critical patterns. Only string leaves are matched.
func DetectCritical(s *model.Session) (bool, string) {
	found := ""
	scanSession(s, func(text string) bool {
		for _, p := range criticalPatterns {
			if p.re.MatchString(text) {
				found = p.name
				return false
			}
		}
		return true
	})
	return found != "", found
}

// Redact returns the allow-listed projection of the session with every string
// value passed through placeholder substitution, plus a report of the rules
// that fired. It fails with *CriticalSecretError before producing any output
// if a critical pattern matches, and with ErrMissingRequiredField if the
// session identifier is absent.
func Redact(s *model.Session) (*model.RedactedSession, []model.RuleHit, error) {
	if ok, rule := DetectCritical(s); ok {
		return nil, nil, &CriticalSecretError{Rule: rule}
	}
	if s.SessionID == "" {
		return nil, nil, ErrMissingRequiredField
	}

	counts := make(map[string]int)
	sub := func(text string) string {
		for _, p := range redactablePatterns {
			text = p.re.ReplaceAllStringFunc(text, func(string) string {
				counts[p.name]++
				return placeholder(p.name)
			})
		}
		return text
	}

	out := &model.RedactedSession{
		SessionID:     sub(s.SessionID),
		Timestamp:     sub(s.Timestamp),
		ToolName:      sub(s.ToolName),
		Success:       s.Success,
		Summary:       sub(s.Summary),
		SchemaVersion: sub(s.SchemaVersion),
	}
	for _, tag := range s.Tags {
		out.Tags = append(out.Tags, sub(tag))
	}

	report := []model.RuleHit{}
	for _, p := range redactablePatterns {
		if n := counts[p.name]; n > 0 {
			report = append(report, model.RuleHit{Rule: p.name, Count: n})
		}
	}
	return out, report, nil
}

// scanSession walks every string leaf of the session. The visitor returns
// false to stop early.
func scanSession(s *model.Session, visit func(string) bool) {
	leaves := []string{s.SessionID, s.Timestamp, s.ToolName, s.Summary, s.SchemaVersion}
	for _, text := range leaves {
		if !visit(text) {
			return
		}
	}
	for _, tag := range s.Tags {
		if !visit(tag) {
			return
		}
	}
	scanValue(s.Extra, visit)
}

// scanValue recurses through the closed set of shapes session data can take:
// mappings, sequences, and text. Other leaf types carry no pattern-matchable
// content and are ignored.
func scanValue(v any, visit func(string) bool) bool {
	switch val := v.(type) {
	case map[string]any:
		for _, item := range val {
			if !scanValue(item, visit) {
				return false
			}
		}
	case []any:
		for _, item := range val {
			if !scanValue(item, visit) {
				return false
			}
		}
	case []string:
		for _, item := range val {
			if !visit(item) {
				return false
			}
		}
	case string:
		return visit(val)
	}
	return true
}
