package storage

import (
	"context"
	"time"

	"github.com/msfxinfinity/QueueCTL/internal/model"
)

// RegisterWorker upserts a worker row. Upsert, not insert, per the
// worker-identity-reuse decision: a worker restarted with the same
// worker_id (e.g. a fixed hostname-based id in a container) must not
// collide with its own stale row.
func (s *Store) RegisterWorker(ctx context.Context, workerID string, pid int) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers(worker_id, pid, started_at, last_heartbeat) VALUES(?, ?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET
			pid = excluded.pid,
			started_at = excluded.started_at,
			last_heartbeat = excluded.last_heartbeat`,
		workerID, pid, now, now,
	)
	return err
}

// TouchWorker bumps a worker's last_heartbeat, independent of any job
// lease heartbeat. Called by the worker loop after every poll tick,
// with or without a job, so `status` can tell a genuinely live worker
// from one whose process died without unregistering.
func (s *Store) TouchWorker(ctx context.Context, workerID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE workers SET last_heartbeat = ? WHERE worker_id = ?`,
		time.Now().UTC(), workerID)
	return err
}

// UnregisterWorker deletes a worker row on graceful exit.
func (s *Store) UnregisterWorker(ctx context.Context, workerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE worker_id = ?`, workerID)
	return err
}

// ListWorkers returns all tracked workers.
func (s *Store) ListWorkers(ctx context.Context) ([]model.WorkerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT worker_id, pid, started_at, last_heartbeat FROM workers ORDER BY worker_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkerRecord
	for rows.Next() {
		var w model.WorkerRecord
		if err := rows.Scan(&w.WorkerID, &w.PID, &w.StartedAt, &w.LastHeartbeat); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReapStaleWorkers deletes worker rows whose last_heartbeat is older
// than olderThan. Purely advisory bookkeeping for `status`'s active
// worker count — job recovery never depends on this, only on lease
// expiry (see ClaimOne).
func (s *Store) ReapStaleWorkers(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE last_heartbeat < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
