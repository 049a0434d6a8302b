package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// MemoryStore implements Store with per-run slices.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]domain.ProcessEvent
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]domain.ProcessEvent)}
}

// CreateEvent appends an event to its run's timeline.
func (s *MemoryStore) CreateEvent(_ context.Context, event *domain.ProcessEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.RunID == "" {
		return fmt.Errorf("run_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.RunID] = append(s.events[event.RunID], *event)
	return nil
}

// GetEvents retrieves events for a run, optionally restricted to types.
func (s *MemoryStore) GetEvents(_ context.Context, runID string, types []domain.EventType, limit int) ([]domain.ProcessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var want map[domain.EventType]bool
	if len(types) > 0 {
		want = make(map[domain.EventType]bool, len(types))
		for _, t := range types {
			want[t] = true
		}
	}

	var out []domain.ProcessEvent
	for _, ev := range s.events[runID] {
		if want != nil && !want[ev.Type] {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
