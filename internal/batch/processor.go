// Package batch drives per-row estimation: resolve cached source,
// query the model a fixed number of times, and stream one CSV line
// per input row.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/estimate-time/internal/cache"
	"github.com/aigoflow/estimate-time/internal/client"
	"github.com/aigoflow/estimate-time/internal/models"
	"github.com/aigoflow/estimate-time/internal/prompt"
)

// Audit receives best-effort diagnostic records. Satisfied by
// *store.DB; nil disables auditing.
type Audit interface {
	Event(level, code, msg string, meta map[string]interface{})
	Attempt(a *models.AttemptLog)
}

// Attempt is the outcome of one inference request. A failed attempt
// keeps its reason; the failure collapses to the -1 sentinel only when
// the value is serialized into the output table.
type Attempt struct {
	Seconds int
	Err     error
}

// Value returns the integer written to the output table: the parsed
// seconds estimate, or -1 for a failed attempt.
func (a Attempt) Value() int {
	if a.Err != nil {
		return -1
	}
	return a.Seconds
}

func (a Attempt) String() string {
	return strconv.Itoa(a.Value())
}

// Processor runs the configured number of inference attempts for one
// input row. All collaborators are passed in; there is no global state.
type Processor struct {
	Client  client.Querier
	Cache   *cache.Resolver
	Model   string
	Repeats int
	RunID   string
	Audit   Audit
}

// ProcessRow resolves the row's cached source once, then issues
// Repeats independent inference requests against the same prompt.
// Attempt-level failures (transport, malformed JSON, missing field)
// are recorded in the returned slice and never abort the row. A
// non-nil error is fatal for the whole batch: unreadable cache
// content, or cancellation of the parent context.
func (p *Processor) ProcessRow(ctx context.Context, row models.InputRow) ([]Attempt, error) {
	code, err := p.Cache.Resolve(row.FilePath)
	if err != nil {
		return nil, err
	}
	promptText := prompt.Build(code)

	attempts := make([]Attempt, 0, p.Repeats)
	for i := 0; i < p.Repeats; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqID := ulid.Make().String()
		start := time.Now()

		raw, err := p.Client.Query(ctx, p.Model, promptText)
		var secs int
		if err == nil {
			secs, err = parseSeconds(raw)
		}

		if err != nil {
			// A canceled parent context means the operator stopped the
			// run, not that the model misbehaved.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("Unexpected output from model",
				"file", row.FilePath,
				"attempt", i,
				"req_id", reqID,
				"error", err)
			attempts = append(attempts, Attempt{Err: err})
		} else {
			attempts = append(attempts, Attempt{Seconds: secs})
		}

		p.audit(start, reqID, row.FilePath, i, len(promptText), raw, attempts[len(attempts)-1])
	}

	return attempts, nil
}

func (p *Processor) audit(start time.Time, reqID, filePath string, attempt, promptLen int, raw string, result Attempt) {
	if p.Audit == nil {
		return
	}
	status := "ok"
	errStr := ""
	if result.Err != nil {
		status = "error"
		errStr = result.Err.Error()
	}
	p.Audit.Attempt(&models.AttemptLog{
		Timestamp:    start,
		RunID:        p.RunID,
		ReqID:        reqID,
		FilePath:     filePath,
		Attempt:      attempt,
		Model:        p.Model,
		PromptLen:    promptLen,
		ResponseText: raw,
		Seconds:      result.Value(),
		DurationMs:   time.Since(start).Milliseconds(),
		Status:       status,
		Error:        errStr,
	})
}

// parseSeconds decodes the model's constrained JSON output. Anything
// but an object carrying an integer "seconds" field is an error.
func parseSeconds(raw string) (int, error) {
	var out struct {
		Seconds *int `json:"seconds"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return 0, fmt.Errorf("parsing model output: %w", err)
	}
	if out.Seconds == nil {
		return 0, fmt.Errorf("model output missing \"seconds\" field")
	}
	return *out.Seconds, nil
}
