package service

import (
	"log"
	"time"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// dispatch applies one streamed event.
func (s *Service) dispatch(rc *runContext, seq uint64, env domain.Envelope) {
	var fx effects
	s.mu.Lock()
	s.applyLocked(rc, seq, env, &fx)
	s.mu.Unlock()
	fx.run()
}

func (s *Service) applyLocked(rc *runContext, seq uint64, env domain.Envelope, fx *effects) {
	if env.Type.IsSession() {
		s.applySessionLocked(rc, seq, env, fx)
		return
	}
	if !s.liveLocked(rc, seq) {
		log.Printf("INFO: discarding %s event of inactive run %s", env.Type, rc.id())
		return
	}

	ev, err := domain.Decode(env)
	if err != nil {
		log.Printf("WARN: run %s: %v", rc.id(), err)
		return
	}
	received := time.Now()
	rc.span.Event(env.Type)
	markStreaming(rc)

	if env.Type != domain.EventTypeTerminated {
		s.recordEvent(rc.id(), env, received)
	}

	switch e := ev.(type) {
	case domain.ThinkingEvent:
		// Timeline only.
	case domain.TextEvent:
		rc.text.WriteString(e.Content)
	case domain.ToolCallEvent:
		rc.addPending(domain.ToolCallRecord{ID: e.ToolCallID, Name: e.ToolName, Arguments: e.Arguments})
	case domain.ToolResultEvent:
		rc.removePending(e.ToolCallID)
	case domain.InterruptEvent:
		s.suspendLocked(rc, e, fx)
	case domain.DoneEvent:
		s.finalizeLocked(rc, e)
	case domain.ErrorEvent:
		s.failLocked(rc, &domain.ApplicationError{RunID: rc.id(), Message: e.Error}, fx)
	case domain.TerminatedEvent:
		s.loading = false
	}
	s.observe(fx, rc.id(), ev)
}

// applySessionLocked hands a session event to the bridge. Session events
// outlive the run that carries them: they apply until the stream is
// superseded or cancelled, even after done or error.
func (s *Service) applySessionLocked(rc *runContext, seq uint64, env domain.Envelope, fx *effects) {
	if !s.streamOpenLocked(rc, seq) {
		log.Printf("INFO: discarding %s event of superseded stream of run %s", env.Type, rc.id())
		return
	}

	ev, err := domain.Decode(env)
	if err != nil {
		log.Printf("WARN: run %s: %v", rc.id(), err)
		return
	}
	if s.liveLocked(rc, seq) {
		rc.span.Event(env.Type)
		markStreaming(rc)
	}

	s.bridgeLocked(rc, ev, fx)
	s.observe(fx, rc.id(), ev)
}

// streamOpenLocked reports whether seq is still the stream of a run that was
// neither cancelled nor replaced by a newer run.
func (s *Service) streamOpenLocked(rc *runContext, seq uint64) bool {
	if rc.stream != seq || rc.status() == domain.RunStatusCancelled {
		return false
	}
	return rc == s.current || rc == s.finished
}

// markStreaming moves a run to STREAMING on the first event of a stream.
func markStreaming(rc *runContext) {
	switch rc.status() {
	case domain.RunStatusSending, domain.RunStatusResuming:
		rc.info.Status = domain.RunStatusStreaming
	}
}

func (s *Service) observe(fx *effects, runID string, ev domain.Event) {
	if s.hooks.OnEvent == nil {
		return
	}
	fx.add(func() {
		s.hooks.OnEvent(runID, ev)
	})
}
