package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/stream"
	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// SendMessage appends a user message and starts a run for it. An outstanding
// run is cancelled first. The run streams in the background; SendMessage
// returns as soon as the request has been issued.
func (s *Service) SendMessage(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.current != nil && !s.current.status().Terminal() {
		s.cancelLocked(s.current)
	}

	rc := s.startRunLocked()
	s.messages = append(s.messages, domain.Message{
		MessageID: newID("msg_"),
		Role:      domain.RoleUser,
		Content:   content,
		Metadata:  &domain.MessageMetadata{RunID: rc.id()},
		CreatedAt: time.Now(),
	})
	s.loading = true

	ctx, seq := s.attachStreamLocked(rc)
	req := &stream.ChatRequest{
		Message:   content,
		SessionID: s.sessionID,
		RunID:     rc.id(),
	}
	s.mu.Unlock()

	log.Printf("INFO: run %s started (session=%q)", rc.id(), req.SessionID)
	go s.transport.Stream(ctx, req, s.handlers(rc, seq))
	return rc.id(), nil
}

// startRunLocked creates a run and makes it current.
func (s *Service) startRunLocked() *runContext {
	if prev := s.current; prev != nil && prev.cancel != nil {
		prev.cancel()
	}
	if prev := s.finished; prev != nil && prev.cancel != nil {
		prev.cancel()
	}
	s.finished = nil

	runID := newID("run_")
	info := &domain.RunInfo{
		RunID:     runID,
		SessionID: s.sessionID,
		Status:    domain.RunStatusSending,
		StartedAt: time.Now(),
	}
	s.runs[runID] = info

	rc := &runContext{
		info: info,
		span: s.telemetry.StartRun(runID, s.sessionID),
	}
	s.current = rc
	return rc
}

// attachStreamLocked gives rc a fresh cancellation token for a new stream.
// Events of any earlier stream of the run are discarded from then on.
func (s *Service) attachStreamLocked(rc *runContext) (context.Context, uint64) {
	if rc.cancel != nil {
		rc.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	rc.cancel = cancel
	rc.stream++
	return ctx, rc.stream
}

// liveLocked reports whether events of the given stream may still change state.
func (s *Service) liveLocked(rc *runContext, seq uint64) bool {
	return rc == s.current && rc.stream == seq && !rc.status().Terminal()
}

func (s *Service) handlers(rc *runContext, seq uint64) stream.Handlers {
	return stream.Handlers{
		OnEvent: func(env domain.Envelope) {
			s.dispatch(rc, seq, env)
		},
		OnError: func(err error) {
			s.streamFailed(rc, seq, err)
		},
		OnComplete: func() {
			s.streamCompleted(rc, seq)
		},
	}
}

// finalizeLocked completes the run. A non-empty final content becomes the
// assistant message; the streaming buffer is discarded either way.
func (s *Service) finalizeLocked(rc *runContext, e domain.DoneEvent) {
	if e.FinalContent != "" {
		s.messages = append(s.messages, domain.Message{
			MessageID: newID("msg_"),
			Role:      domain.RoleAssistant,
			Content:   e.FinalContent,
			Metadata:  &domain.MessageMetadata{RunID: rc.id()},
			CreatedAt: time.Now(),
		})
	}
	rc.text.Reset()
	rc.pending = nil
	s.loading = false
	s.interrupt = nil
	s.endRunLocked(rc, domain.RunStatusCompleted, nil)
	s.current = nil
	s.finished = rc

	log.Printf("INFO: run %s completed", rc.id())
}

// failLocked ends the run with err. The run stays current so its partial
// output remains visible until the next run replaces it.
func (s *Service) failLocked(rc *runContext, err error, fx *effects) {
	s.loading = false
	s.interrupt = nil
	s.endRunLocked(rc, domain.RunStatusErrored, err)
	s.reportError(fx, err)

	log.Printf("ERROR: run %s failed: %v", rc.id(), err)
}

func (s *Service) endRunLocked(rc *runContext, status domain.RunStatus, err error) {
	now := time.Now()
	rc.info.Status = status
	rc.info.EndedAt = &now
	rc.span.End(status, err)
}

func (s *Service) streamFailed(rc *runContext, seq uint64, err error) {
	var fx effects
	s.mu.Lock()
	if s.liveLocked(rc, seq) {
		s.failLocked(rc, &domain.TransportError{RunID: rc.id(), Err: err}, &fx)
	} else {
		log.Printf("INFO: ignoring stream error of inactive run %s: %v", rc.id(), err)
	}
	s.mu.Unlock()
	fx.run()
}

func (s *Service) streamCompleted(rc *runContext, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rc.stream == seq && rc.cancel != nil {
		rc.cancel()
	}
	if rc == s.finished && rc.stream == seq {
		s.finished = nil
	}
	if !s.liveLocked(rc, seq) || rc.status() == domain.RunStatusInterruptPending {
		return
	}
	if s.loading {
		log.Printf("WARN: stream of run %s ended without a terminal event", rc.id())
		s.loading = false
	}
}
