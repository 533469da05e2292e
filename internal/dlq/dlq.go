// Package dlq is a thin layer over the store for dead-letter queue
// operations, split out from internal/storage the way the spec calls
// out the DLQ Manager as its own component.
package dlq

import (
	"context"

	"github.com/msfxinfinity/QueueCTL/internal/model"
	"github.com/msfxinfinity/QueueCTL/internal/storage"
)

type Manager struct {
	Store *storage.Store
}

func New(store *storage.Store) *Manager {
	return &Manager{Store: store}
}

// List returns jobs currently quarantined, with their last_error.
func (m *Manager) List(ctx context.Context) ([]model.Job, error) {
	return m.Store.DLQList(ctx)
}

// Retry moves a job back to pending, resetting attempts, only if it
// is currently in the dlq.
func (m *Manager) Retry(ctx context.Context, jobID int64) error {
	return m.Store.DLQRetry(ctx, jobID)
}
