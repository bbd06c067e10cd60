package models

import "time"

// InputRow is one line of the input table. Measures is the
// human-provided baseline estimate, carried through to the output
// unmodified.
type InputRow struct {
	FilePath string
	Measures string
}

// AttemptLog represents one logged inference attempt for the audit store.
type AttemptLog struct {
	Timestamp    time.Time `json:"ts"`
	RunID        string    `json:"run_id"`
	ReqID        string    `json:"req_id"`
	FilePath     string    `json:"file_path"`
	Attempt      int       `json:"attempt"`
	Model        string    `json:"model"`
	PromptLen    int       `json:"prompt_len"`
	ResponseText string    `json:"response_text"`
	Seconds      int       `json:"seconds"`
	DurationMs   int64     `json:"dur_ms"`
	Status       string    `json:"status"`
	Error        string    `json:"error"`
}
