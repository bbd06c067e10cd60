package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aigoflow/estimate-time/internal/models"
)

func TestAttemptRoundtrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "audit.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Attempt(&models.AttemptLog{
		Timestamp:    time.Now(),
		RunID:        "01RUN",
		ReqID:        "01REQ",
		FilePath:     "Foo.java",
		Attempt:      2,
		Model:        "qwen3:4b",
		PromptLen:    512,
		ResponseText: `{"seconds": 30}`,
		Seconds:      30,
		DurationMs:   1200,
		Status:       "ok",
	})
	db.Attempt(&models.AttemptLog{
		Timestamp: time.Now(),
		RunID:     "01RUN",
		ReqID:     "01REQ2",
		FilePath:  "Foo.java",
		Attempt:   3,
		Model:     "qwen3:4b",
		Seconds:   -1,
		Status:    "error",
		Error:     "request timeout",
	})

	logs, err := db.Attempts(10)
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}

	// Newest first.
	if logs[0].Status != "error" || logs[0].Seconds != -1 || logs[0].Error != "request timeout" {
		t.Errorf("latest = %+v", logs[0])
	}
	if logs[1].Status != "ok" || logs[1].Seconds != 30 || logs[1].FilePath != "Foo.java" {
		t.Errorf("earlier = %+v", logs[1])
	}
	if logs[1].DurationMs != 1200 {
		t.Errorf("DurationMs = %d, want 1200", logs[1].DurationMs)
	}
}

func TestEventBestEffort(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "audit.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Event("info", "run.start", "Run starting", map[string]interface{}{"run_id": "01RUN"})
	db.Event("error", "run.failed", "Run failed", nil)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		t.Fatalf("counting events: %v", err)
	}
	if count != 2 {
		t.Errorf("events = %d, want 2", count)
	}
}
