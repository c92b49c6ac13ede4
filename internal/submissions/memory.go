package submissions

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Repository, mostly for tests.
type MemoryStore struct {
	mu   sync.Mutex
	list []Submission
	err  error
}

func NewMemoryStore(initial ...Submission) *MemoryStore {
	list := make([]Submission, 0, len(initial))
	list = append(list, initial...)
	return &MemoryStore{list: list}
}

// FailWith makes every following Append return err. Pass nil to reset.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryStore) List(_ context.Context) ([]Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Submission, len(m.list))
	copy(out, m.list)
	return out, nil
}

func (m *MemoryStore) Append(_ context.Context, s Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.list = append(m.list, s)
	return nil
}
