// internal/registry/memory.go
package registry

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MemoryStore keeps the registry in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[solana.PublicKey]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[solana.PublicKey]int)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[e.Pool]; ok {
		return ErrDuplicateKey
	}
	s.index[e.Pool] = len(s.entries)
	s.entries = append(s.entries, copyEntry(e))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, pool solana.PublicKey) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[pool]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return copyEntry(s.entries[i]), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = copyEntry(e)
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// copyEntry detaches e from the caller's Positions slice.
func copyEntry(e Entry) Entry {
	e.Positions = append([]string(nil), e.Positions...)
	return e
}
