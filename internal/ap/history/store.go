// Package history records provisioning runs in a local SQLite database so an
// operator can inspect what the installer did and when.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var ddl string

// Run statuses
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Step statuses
const (
	StepChanged = "changed"
	StepNoop    = "noop"
	StepFailed  = "failed"
)

// Run is one provisioning run
type Run struct {
	ID          string
	IA          string
	ServiceName string
	Status      string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// StepRecord is the outcome of one step within a run
type StepRecord struct {
	RunID  string
	Seq    int
	Step   string
	Status string
	Detail string
}

// Store persists run history in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a new run in running state
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ia, service_name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.IA, run.ServiceName, StatusRunning, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordStep appends a step outcome to a run
func (s *Store) RecordStep(ctx context.Context, rec StepRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_steps (run_id, seq, step, status, detail) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.Step, rec.Status, rec.Detail)
	if err != nil {
		return fmt.Errorf("failed to record step %s: %w", rec.Step, err)
	}
	return nil
}

// FinishRun marks a run as succeeded or failed
func (s *Store) FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil when the host has
// never been provisioned.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ia, service_name, status, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)

	var run Run
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.IA, &run.ServiceName, &run.Status, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}

	return &run, nil
}

// RunSteps returns the step outcomes of a run in execution order
func (s *Store) RunSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, step, status, detail FROM run_steps WHERE run_id = ? ORDER BY seq`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Step, &rec.Status, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan step record: %w", err)
		}
		steps = append(steps, rec)
	}

	return steps, rows.Err()
}
