package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"

	"cleo-screening/internal/session"
)

// MemoryStore is an in-process Store for tests and local runs. It
// round-trips snapshots through the same codec as the Redis store so
// serialization bugs surface in tests too.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Load(_ context.Context, threadID string) (*session.State, error) {
	m.mu.RLock()
	data, ok := m.data[threadID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var snap session.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if snap.Version > session.SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrVersionTooNew, snap.Version, session.SnapshotVersion)
	}
	return snap.State, nil
}

func (m *MemoryStore) Save(_ context.Context, state *session.State) error {
	data, err := sonic.Marshal(session.NewSnapshot(state))
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	m.mu.Lock()
	m.data[state.ThreadID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	delete(m.data, threadID)
	m.mu.Unlock()
	return nil
}
