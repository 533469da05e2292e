package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/msfxinfinity/QueueCTL/internal/model"
)

// DLQList returns jobs currently quarantined in the dead-letter
// queue.
func (s *Store) DLQList(ctx context.Context) ([]model.Job, error) {
	return s.ListJobs(ctx, model.StateDLQ)
}

// DLQRetry atomically moves a job from dlq back to pending, resetting
// attempts and next_run_at, but only if it is actually in the dlq —
// retrying a job that already moved on (or never existed) is an
// error, not a silent success.
func (s *Store) DLQRetry(ctx context.Context, jobID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, attempts = 0, claimed_by = NULL,
			claimed_at = NULL, lease_deadline = NULL, next_run_at = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		model.StatePending, time.Now().UTC(), time.Now().UTC(), jobID, model.StateDLQ,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		exists, err := s.jobExists(ctx, jobID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNotDLQ
	}
	return nil
}

func (s *Store) jobExists(ctx context.Context, jobID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
