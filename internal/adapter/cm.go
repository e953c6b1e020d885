package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/lumera-labs/cascade-memory/internal/model"
)

// DefaultTimeout bounds one cm invocation. Timeouts surface as service
// errors, not as session-not-found; the pipeline makes a single attempt.
const DefaultTimeout = 10 * time.Second

// CMExporter exports sessions via the cm CLI (`cm context <id> --json`).
type CMExporter struct {
	bin     string
	timeout time.Duration
}

// NewCMExporter builds an exporter around a cm binary path.
func NewCMExporter(bin string, timeout time.Duration) *CMExporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CMExporter{bin: bin, timeout: timeout}
}

// Detect returns an exporter backed by the cm CLI when it is on PATH, and
// the fixture table otherwise.
func Detect() Exporter {
	if path, err := exec.LookPath("cm"); err == nil {
		return NewCMExporter(path, DefaultTimeout)
	}
	return NewFixtureExporter()
}

type cmContext struct {
	Timestamp string   `json:"timestamp"`
	Tool      string   `json:"tool"`
	Success   *bool    `json:"success"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
}

// ExportSession runs cm with a bounded timeout and maps its output onto the
// session schema. A non-zero exit means the session does not exist.
func (e *CMExporter) ExportSession(ctx context.Context, sessionID string) (*model.Session, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, e.bin, "context", sessionID, "--json").Output()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("cm CLI timeout after %s for session %s", e.timeout, sessionID)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("cm CLI failed: %w", err)
	}

	var cc cmContext
	if err := json.Unmarshal(out, &cc); err != nil {
		return nil, fmt.Errorf("cm CLI returned invalid JSON: %w", err)
	}

	success := true
	if cc.Success != nil {
		success = *cc.Success
	}
	tool := cc.Tool
	if tool == "" {
		tool = "unknown"
	}

	return &model.Session{
		SessionID: sessionID,
		Timestamp: cc.Timestamp,
		ToolName:  tool,
		Success:   success,
		Summary:   cc.Summary,
		Tags:      cc.Tags,
	}, nil
}
