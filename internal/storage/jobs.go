package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/msfxinfinity/QueueCTL/internal/model"
)

const jobColumns = `id, command, state, attempts, max_retries, next_run_at,
	claimed_by, claimed_at, lease_deadline, last_error, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*model.Job, error) {
	var j model.Job
	var claimedBy sql.NullString
	var claimedAt, leaseDeadline sql.NullString
	var lastError sql.NullString

	err := row.Scan(
		&j.ID, &j.Command, &j.State, &j.Attempts, &j.MaxRetries, &j.NextRunAt,
		&claimedBy, &claimedAt, &leaseDeadline, &lastError, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.ClaimedBy = claimedBy.String
	j.LastError = lastError.String
	if j.ClaimedAt, err = scanNullTime(claimedAt); err != nil {
		return nil, err
	}
	if j.LeaseDeadline, err = scanNullTime(leaseDeadline); err != nil {
		return nil, err
	}
	return &j, nil
}

// EnqueueJob inserts a new pending job, immediately eligible for
// claim. maxRetries of 0 or less falls back to defaultMaxRetries.
func (s *Store) EnqueueJob(ctx context.Context, command string, maxRetries, defaultMaxRetries int) (int64, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (command, state, attempts, max_retries, next_run_at, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?, ?)`,
		command, model.StatePending, maxRetries, now, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ClaimOne is the central atomic primitive: it selects the
// lowest-(next_run_at, id) row that is either pending-and-due or
// running-with-an-expired-lease, and flips it to running under the
// caller's worker id in a single BEGIN IMMEDIATE transaction (see
// Open in sqlite.go for why that's sufficient for exclusivity).
// Returns (nil, nil) when nothing is claimable — that's the ordinary
// case, not an error.
func (s *Store) ClaimOne(ctx context.Context, workerID string, now time.Time, leaseDuration time.Duration) (*model.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE (state = ? AND next_run_at <= ?)
		   OR (state = ? AND lease_deadline <= ?)
		ORDER BY next_run_at ASC, id ASC
		LIMIT 1`,
		model.StatePending, now, model.StateRunning, now,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	deadline := now.Add(leaseDuration)
	_, err = tx.ExecContext(ctx, `
		UPDATE jobs SET state = ?, claimed_by = ?, claimed_at = ?, lease_deadline = ?, updated_at = ?
		WHERE id = ?`,
		model.StateRunning, workerID, now, deadline, now, job.ID,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.State = model.StateRunning
	job.ClaimedBy = workerID
	job.ClaimedAt = &now
	job.LeaseDeadline = &deadline
	job.UpdatedAt = now
	return job, nil
}

// SettleSuccess transitions a running job to completed, incrementing
// attempts, but only if workerID still holds the lease.
func (s *Store) SettleSuccess(ctx context.Context, jobID int64, workerID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, attempts = attempts + 1, claimed_by = NULL,
			claimed_at = NULL, lease_deadline = NULL, last_error = NULL, updated_at = ?
		WHERE id = ? AND state = ? AND claimed_by = ?`,
		model.StateCompleted, now, jobID, model.StateRunning, workerID,
	)
	if err != nil {
		return err
	}
	return checkOwned(res)
}

// SettleFailure transitions a running job to either pending (with a
// future next_run_at) or dlq, per the caller's retry-policy decision,
// again conditioned on the caller still holding the lease.
func (s *Store) SettleFailure(ctx context.Context, jobID int64, workerID, lastError string, nextRunAt time.Time, toDLQ bool) error {
	now := time.Now().UTC()
	nextState := model.StatePending
	if toDLQ {
		nextState = model.StateDLQ
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, attempts = attempts + 1, claimed_by = NULL,
			claimed_at = NULL, lease_deadline = NULL, last_error = ?, next_run_at = ?, updated_at = ?
		WHERE id = ? AND state = ? AND claimed_by = ?`,
		nextState, truncateError(lastError), nextRunAt, now, jobID, model.StateRunning, workerID,
	)
	if err != nil {
		return err
	}
	return checkOwned(res)
}

// Heartbeat extends a running job's lease. It is a no-op (not an
// error worth surfacing loudly) if the claim was already stolen —
// the caller logs ErrLeaseStolen and abandons the job.
func (s *Store) Heartbeat(ctx context.Context, jobID int64, workerID string, newDeadline time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET lease_deadline = ?, updated_at = ?
		WHERE id = ? AND state = ? AND claimed_by = ?`,
		newDeadline, time.Now().UTC(), jobID, model.StateRunning, workerID,
	)
	if err != nil {
		return err
	}
	return checkOwned(res)
}

func checkOwned(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLeaseStolen
	}
	return nil
}

// maxLastError bounds last_error the way the executor bounds captured
// output: a diagnostic, not a log.
const maxLastError = 4096

func truncateError(s string) string {
	if len(s) <= maxLastError {
		return s
	}
	return s[:maxLastError]
}

// CountsByState returns the number of jobs per state, for the status
// command.
func (s *Store) CountsByState(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

// ListJobs returns jobs, optionally filtered by state, newest first.
func (s *Store) ListJobs(ctx context.Context, stateFilter string) ([]model.Job, error) {
	var rows *sql.Rows
	var err error
	if stateFilter != "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE state = ? ORDER BY id DESC`, stateFilter)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}
