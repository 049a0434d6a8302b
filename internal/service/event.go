package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// recordEvent appends an event to the run timeline.
func (s *Service) recordEvent(runID string, env domain.Envelope, received time.Time) {
	event := &domain.ProcessEvent{
		EventID: newID("evt_"),
		RunID:   runID,
		Ts:      env.Time(received).UnixMilli(),
		Type:    env.Type,
	}
	if len(env.Data) > 0 && json.Valid(env.Data) {
		event.Payload = env.Data
	}

	if err := s.store.CreateEvent(context.Background(), event); err != nil {
		log.Printf("ERROR: failed to record %s event for run %s: %v", env.Type, runID, err)
	}
}
