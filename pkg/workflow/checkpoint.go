package workflow

import (
	"context"
	"sync"
)

// CheckpointStore persists the latest serialized State per thread id.
// Each Put overwrites the prior checkpoint; Get returns ok=false when no
// checkpoint exists for the thread.
type CheckpointStore interface {
	Put(ctx context.Context, threadID string, state []byte) error
	Get(ctx context.Context, threadID string) (state []byte, ok bool, err error)
	Delete(ctx context.Context, threadID string) error
}

// MemoryCheckpointStore keeps checkpoints in process memory. Suitable for
// tests and single-node runs without durability requirements.
type MemoryCheckpointStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{states: make(map[string][]byte)}
}

var _ CheckpointStore = &MemoryCheckpointStore{}

func (s *MemoryCheckpointStore) Put(_ context.Context, threadID string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob := make([]byte, len(state))
	copy(blob, state)
	s.states[threadID] = blob
	return nil
}

func (s *MemoryCheckpointStore) Get(_ context.Context, threadID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.states[threadID]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true, nil
}

func (s *MemoryCheckpointStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, threadID)
	return nil
}
