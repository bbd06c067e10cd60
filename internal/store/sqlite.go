// Package store persists an optional SQLite audit trail of run events
// and individual inference attempts. Writes are best-effort: the CSV
// output is the source of truth, the audit store is for diagnosis.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aigoflow/estimate-time/internal/models"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		level TEXT,
		code TEXT,
		msg TEXT,
		meta TEXT
	)`); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS attempts(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		run_id TEXT,
		req_id TEXT,
		file_path TEXT,
		attempt INTEGER,
		model TEXT,
		prompt_len INTEGER,
		response_text TEXT,
		seconds INTEGER,
		dur_ms REAL,
		status TEXT,
		error TEXT
	)`); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) Event(level, code, msg string, meta map[string]interface{}) {
	m := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		m = string(b)
	}
	_, _ = db.Exec(`INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`,
		float64(time.Now().UnixNano())/1e9, level, code, msg, m)
}

func (db *DB) Attempt(a *models.AttemptLog) {
	_, _ = db.Exec(`INSERT INTO attempts(
		ts, run_id, req_id, file_path, attempt, model, prompt_len, response_text, seconds, dur_ms, status, error)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		float64(a.Timestamp.UnixNano())/1e9, a.RunID, a.ReqID, a.FilePath, a.Attempt, a.Model,
		a.PromptLen, a.ResponseText, a.Seconds, float64(a.DurationMs), a.Status, a.Error)
}

// Attempts returns the most recent attempt records, newest first.
func (db *DB) Attempts(limit int) ([]*models.AttemptLog, error) {
	rows, err := db.Query(`SELECT ts,run_id,req_id,file_path,attempt,model,prompt_len,response_text,seconds,dur_ms,status,error
		FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AttemptLog
	for rows.Next() {
		var a models.AttemptLog
		var tsFloat, durMs float64
		if err := rows.Scan(
			&tsFloat, &a.RunID, &a.ReqID, &a.FilePath, &a.Attempt, &a.Model,
			&a.PromptLen, &a.ResponseText, &a.Seconds, &durMs, &a.Status, &a.Error,
		); err != nil {
			return nil, err
		}
		a.Timestamp = time.Unix(0, int64(tsFloat*1e9))
		a.DurationMs = int64(durMs)
		logs = append(logs, &a)
	}
	return logs, rows.Err()
}
