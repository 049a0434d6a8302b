package service

import (
	"log"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// CancelRequest aborts the outstanding run. The user message stays in the
// history; partial output and pending tool calls are discarded. Calling it
// with nothing outstanding is a no-op.
func (s *Service) CancelRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.status().Terminal() {
		s.loading = false
		return
	}
	s.cancelLocked(s.current)
}

func (s *Service) cancelLocked(rc *runContext) {
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.text.Reset()
	rc.pending = nil
	s.loading = false
	s.interrupt = nil
	s.endRunLocked(rc, domain.RunStatusCancelled, nil)
	if s.current == rc {
		s.current = nil
	}

	log.Printf("INFO: run %s cancelled", rc.id())
}
