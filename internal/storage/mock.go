package storage

import (
	"context"
	"sync"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// MockStore is an in-memory Store for tests. Snapshots are keyed by signal
// id, so it exhibits the same idempotency as the real stores.
type MockStore struct {
	mu        sync.Mutex
	snapshots map[string]*types.OutcomeSnapshot
	upserts   int
	failures  int // remaining forced failures, for retry tests
	failErr   error
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		snapshots: make(map[string]*types.OutcomeSnapshot),
	}
}

// FailNext makes the next n upserts return err.
func (m *MockStore) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}

// Upsert stores the snapshot in memory.
func (m *MockStore) Upsert(ctx context.Context, snap *types.OutcomeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return m.failErr
	}

	m.upserts++
	m.snapshots[snap.SignalID] = snap
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Get returns the stored snapshot for a signal id.
func (m *MockStore) Get(signalID string) (*types.OutcomeSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[signalID]
	return snap, ok
}

// Upserts returns the number of successful upserts.
func (m *MockStore) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// Finals returns all terminal snapshots.
func (m *MockStore) Finals() []*types.OutcomeSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.OutcomeSnapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		if snap.Final() {
			out = append(out, snap)
		}
	}
	return out
}
