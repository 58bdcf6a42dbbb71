package storage

import (
	"context"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// Store is the durable sink for evaluation snapshots and terminal outcomes.
// Upsert must be idempotent on the snapshot's signal id: delivery is
// at-least-once and a redelivered terminal snapshot must not double-write.
type Store interface {
	// Upsert stores or replaces the snapshot for its signal id.
	Upsert(ctx context.Context, snap *types.OutcomeSnapshot) error

	// Close closes the storage connection.
	Close() error
}
