// Package store defines the run timeline storage interface and implementations.
package store

import (
	"context"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// Store is the append-only run timeline. Events of a run are returned in the
// order they were created.
type Store interface {
	CreateEvent(ctx context.Context, event *domain.ProcessEvent) error
	GetEvents(ctx context.Context, runID string, types []domain.EventType, limit int) ([]domain.ProcessEvent, error)

	Close() error
}
