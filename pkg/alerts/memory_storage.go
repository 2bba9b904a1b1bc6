package alerts

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/notifier"
)

// MemoryStorage is a thread-safe in-memory Storage for tests and single-node
// deployments.
type MemoryStorage struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]Rule
}

// NewMemoryStorage creates an empty in-memory rule storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{rules: make(map[uuid.UUID]Rule)}
}

func (s *MemoryStorage) Create(_ context.Context, r Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ID] = r
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, id, userID uuid.UUID) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return nil, ErrRuleNotFound
	}
	return &r, nil
}

func (s *MemoryStorage) Update(_ context.Context, r Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[r.ID]
	if !ok || existing.UserID != r.UserID {
		return ErrRuleNotFound
	}
	s.rules[r.ID] = r
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *MemoryStorage) ListByUser(_ context.Context, userID uuid.UUID) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, r := range s.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) ListActiveByKind(_ context.Context, kind notifier.Kind) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, r := range s.rules {
		if r.Active && r.Kind == kind {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
