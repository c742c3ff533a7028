package testutil

import (
	"context"
	"sync"

	"github.com/roach88/hotclick/internal/model"
)

// MemoryStore is an in-memory macro store with injectable failures.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type MemoryStore struct {
	mu      sync.Mutex
	macros  []model.Macro
	loadErr error
	saveErr error
	saves   int
}

// NewMemoryStore creates a store holding a copy of macros.
func NewMemoryStore(macros ...model.Macro) *MemoryStore {
	s := &MemoryStore{}
	s.macros = append(s.macros, macros...)
	return s
}

// Load returns a copy of the stored macros, or the injected load error.
func (s *MemoryStore) Load(ctx context.Context) ([]model.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]model.Macro, len(s.macros))
	copy(out, s.macros)
	return out, nil
}

// Save replaces the stored macros, or returns the injected save error
// without changing them.
func (s *MemoryStore) Save(ctx context.Context, macros []model.Macro) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.macros = append([]model.Macro(nil), macros...)
	return nil
}

// FailLoad makes Load return err. Pass nil to restore.
func (s *MemoryStore) FailLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// FailSave makes Save return err. Pass nil to restore.
func (s *MemoryStore) FailSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saved returns what the last successful Save stored.
func (s *MemoryStore) Saved() []model.Macro {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Macro, len(s.macros))
	copy(out, s.macros)
	return out
}

// SaveCount returns how many times Save was called, including failures.
func (s *MemoryStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
