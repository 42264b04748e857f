// Package history keeps a SQLite ledger of finished narration jobs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alnah/go-narrate/internal/job"
)

// DefaultLimit is the number of entries Recent returns for limit <= 0.
const DefaultLimit = 20

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT    NOT NULL,
    prompts     INTEGER NOT NULL,
    srt         INTEGER NOT NULL,
    outputs     INTEGER NOT NULL,
    error       TEXT,
    started_at  TEXT    NOT NULL,
    elapsed_ms  INTEGER NOT NULL,
    result_json TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at);
`

// Entry is one recorded job.
type Entry struct {
	ID        int64         `json:"id"`
	Source    string        `json:"source"`
	Prompts   int           `json:"prompts"`
	SRT       bool          `json:"srt"`
	Outputs   int           `json:"outputs"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Result    job.Result    `json:"result"`
}

// Failed reports whether the job ended with an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Store persists job records. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

var _ job.Recorder = (*Store)(nil)

// Open creates or opens the ledger at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil { // #nosec G301 -- user data dir
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a finished job.
func (s *Store) Record(ctx context.Context, rec job.Record) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO jobs (source, prompts, srt, outputs, error, started_at, elapsed_ms, result_json)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Source,
			len(rec.Request.Prompts),
			boolToInt(rec.Request.GenerateSRT),
			rec.Result.Count,
			nullableString(rec.Result.Error),
			rec.Started.UTC().Format(time.RFC3339Nano),
			rec.Elapsed.Milliseconds(),
			string(resultJSON),
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, prompts, srt, outputs, error, started_at, elapsed_ms, result_json
         FROM jobs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return entries, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		e          Entry
		srtFlag    int64
		errMsg     sql.NullString
		startedRaw string
		elapsedMS  int64
		resultRaw  string
	)
	if err := scanner.Scan(&e.ID, &e.Source, &e.Prompts, &srtFlag, &e.Outputs, &errMsg, &startedRaw, &elapsedMS, &resultRaw); err != nil {
		return Entry{}, fmt.Errorf("scan job: %w", err)
	}

	started, err := time.Parse(time.RFC3339Nano, startedRaw)
	if err != nil {
		return Entry{}, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
	}
	if err := json.Unmarshal([]byte(resultRaw), &e.Result); err != nil {
		return Entry{}, fmt.Errorf("decode result of job %d: %w", e.ID, err)
	}

	e.SRT = srtFlag != 0
	e.Error = errMsg.String
	e.StartedAt = started
	e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return e, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
