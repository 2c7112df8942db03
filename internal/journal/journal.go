package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	config_path TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	status      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_actions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	action      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stage_actions_run ON stage_actions (run_id);
`

// Run statuses stored in the runs table.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Journal is a handle on the run-history database.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal database at path and
// ensures the schema exists.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun inserts a new run in the running state.
func (j *Journal) StartRun(ctx context.Context, runID, configPath string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, config_path, started_at, status) VALUES (?, ?, ?, ?)`,
		runID, configPath, time.Now().UTC(), StatusRunning)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// FinishRun marks a run as succeeded or failed and stamps its end time.
func (j *Journal) FinishRun(ctx context.Context, runID string, succeeded bool) error {
	status := StatusSucceeded
	if !succeeded {
		status = StatusFailed
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC(), status, runID)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// RecordStage appends one terminal stage outcome to the run. stageErr may
// be nil; action is one of executed, cached, failed, or skipped.
func (j *Journal) RecordStage(ctx context.Context, runID, stage, fingerprint, action string, duration time.Duration, stageErr error) error {
	var message sql.NullString
	if stageErr != nil {
		message = sql.NullString{String: stageErr.Error(), Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO stage_actions (run_id, stage, fingerprint, action, duration_ms, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, stage, fingerprint, action, duration.Milliseconds(), message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording stage %q: %w", stage, err)
	}
	return nil
}

// Run is one row of run history with its per-action stage counts.
type Run struct {
	ID         string
	ConfigPath string
	StartedAt  time.Time
	FinishedAt time.Time // zero when the run is still open
	Status     string
	Executed   int
	Cached     int
	Failed     int
	Skipped    int
}

// History returns the most recent runs, newest first. limit <= 0 means
// no limit.
func (j *Journal) History(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.config_path, r.started_at, r.finished_at, r.status,
		       COALESCE(SUM(CASE WHEN a.action = 'executed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.action = 'cached'   THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.action = 'failed'   THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.action = 'skipped'  THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN stage_actions a ON a.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.ConfigPath, &run.StartedAt, &finished, &run.Status,
			&run.Executed, &run.Cached, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run history: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	return runs, nil
}
