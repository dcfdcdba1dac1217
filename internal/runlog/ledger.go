// Package runlog records executor runs in a SQLite ledger inside the vault.
package runlog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bborn/codex-vault/internal/vault"
)

// FileName is the ledger database file inside ai/runs/.
const FileName = "runs.db"

// Run states.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when finishing an unknown run.
var ErrRunNotFound = errors.New("run not found")

// Run is one executor invocation.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	TaskSlug   string     `json:"task_slug"`
	Executor   string     `json:"executor"`
	Status     string     `json:"status"`
	OutputPath string     `json:"output_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Ledger wraps the runs database.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Path returns the ledger location for a vault root.
func Path(root string) string {
	return filepath.Join(vault.New(root).RunsDir(), FileName)
}

// Open opens or creates the ledger for the vault at root.
func Open(root string) (*Ledger, error) {
	return OpenPath(Path(root))
}

// OpenPath opens or creates a ledger at the given file path.
func OpenPath(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create runs directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	l := &Ledger{db: db, now: time.Now}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			task_slug TEXT NOT NULL,
			executor TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			output_path TEXT DEFAULT '',
			error TEXT DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_task_slug ON runs(task_slug)`,
	}
	for _, m := range migrations {
		if _, err := l.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Start records a new running run and returns it.
func (l *Ledger) Start(kind, taskSlug, executor string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		TaskSlug:  taskSlug,
		Executor:  executor,
		Status:    StatusRunning,
		StartedAt: l.now().UTC(),
	}
	_, err := l.db.Exec(
		`INSERT INTO runs (id, kind, task_slug, executor, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.TaskSlug, run.Executor, run.Status, run.StartedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish marks a run as succeeded, or failed when runErr is non-nil.
func (l *Ledger) Finish(id, outputPath string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := l.db.Exec(
		`UPDATE runs SET status = ?, output_path = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, outputPath, msg, l.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (l *Ledger) List(limit int) ([]Run, error) {
	query := `SELECT id, kind, task_slug, executor, status, output_path, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Kind, &r.TaskSlug, &r.Executor, &r.Status,
			&r.OutputPath, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
