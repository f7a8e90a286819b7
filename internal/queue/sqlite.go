package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"whatswizard/internal/core/domain"
)

const claimPollInterval = 250 * time.Millisecond

// SQLiteQueue is a durable backend: jobs survive a process restart.
type SQLiteQueue struct {
	db *sql.DB
}

// NewSQLiteQueue opens (creating if needed) the queue database at dbPath.
// Opening never touches job state, so read-only consumers can share the
// file with a live worker; the owning process calls Recover once at
// startup.
func NewSQLiteQueue(dbPath string) (*SQLiteQueue, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite queue: %w", err)
	}

	q := &SQLiteQueue{db: db}
	if err := q.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

func (q *SQLiteQueue) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		timestamp   INTEGER NOT NULL,
		enqueued_at TIMESTAMP NOT NULL,
		state       TEXT NOT NULL,          -- pending|running|completed|failed
		error       TEXT,
		updated_at  TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_state_enqueued ON jobs(state, enqueued_at);
	`
	_, err := q.db.Exec(schema)
	return err
}

// Recover returns jobs stranded in running by a crashed process to the
// pending pool. Only the process that owns the single consumer may call
// this, and only before its worker starts: a job that is legitimately
// running in another process would be claimed a second time otherwise.
func (q *SQLiteQueue) Recover(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
UPDATE jobs SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE state = ?`,
		domain.StatusPending, domain.StatusRunning)
	if err != nil {
		return fmt.Errorf("requeue interrupted jobs: %w", err)
	}
	return nil
}

// Enqueue appends a pending job.
func (q *SQLiteQueue) Enqueue(ctx context.Context, job domain.Job) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO jobs (id, url, user_id, timestamp, enqueued_at, state, updated_at)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		job.ID, job.URL, job.UserID, job.Timestamp, job.EnqueuedAt, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("enqueue %s: %v: %w", job.ID, err, domain.ErrQueueUnavailable)
	}
	return nil
}

// Dequeue polls for the oldest pending job and claims it atomically,
// blocking until one is available or ctx is done.
func (q *SQLiteQueue) Dequeue(ctx context.Context) (domain.Job, error) {
	ticker := time.NewTicker(claimPollInterval)
	defer ticker.Stop()

	for {
		job, ok, err := q.claim(ctx)
		if err != nil {
			return domain.Job{}, err
		}
		if ok {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return domain.Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *SQLiteQueue) claim(ctx context.Context) (domain.Job, bool, error) {
	tx, err := q.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Job{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
SELECT id, url, user_id, timestamp, enqueued_at
FROM jobs
WHERE state = ?
ORDER BY enqueued_at ASC, id ASC
LIMIT 1`, domain.StatusPending)

	var job domain.Job
	if err := row.Scan(&job.ID, &job.URL, &job.UserID, &job.Timestamp, &job.EnqueuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE jobs SET state = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND state = ?`, domain.StatusRunning, job.ID, domain.StatusPending)
	if err != nil {
		return domain.Job{}, false, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.Job{}, false, nil
	}
	if err := tx.Commit(); err != nil {
		return domain.Job{}, false, err
	}
	return job, true, nil
}

// Done records the terminal status of a claimed job.
func (q *SQLiteQueue) Done(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("non-terminal status %q", status)
	}
	_, err := q.db.ExecContext(ctx, `
UPDATE jobs SET state = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, errMsg, jobID)
	return err
}

// Count returns pending plus running jobs.
func (q *SQLiteQueue) Count(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM jobs WHERE state IN (?, ?)`,
		domain.StatusPending, domain.StatusRunning).Scan(&n)
	return n, err
}

func (q *SQLiteQueue) Close() error { return q.db.Close() }
