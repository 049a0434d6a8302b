package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/stream"
	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// suspendLocked parks the run at an interrupt checkpoint. The stream is
// expected to end; the run continues only through ResumeExecution.
func (s *Service) suspendLocked(rc *runContext, e domain.InterruptEvent, fx *effects) {
	intr := domain.InterruptState{
		CheckpointID:  e.CheckpointID,
		PendingAction: e.PendingAction,
		Reason:        e.Reason,
	}
	s.interrupt = &intr
	s.loading = false
	rc.info.Status = domain.RunStatusInterruptPending

	log.Printf("INFO: run %s interrupted at checkpoint %s: %s", rc.id(), e.CheckpointID, e.Reason)

	if s.decider == nil {
		return
	}
	fx.add(func() {
		s.autoDecide(intr)
	})
}

// autoDecide resumes the interrupt when the decider settles it.
func (s *Service) autoDecide(intr domain.InterruptState) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	action, ok := s.decider.Decide(ctx, intr)
	if !ok {
		return
	}
	log.Printf("INFO: checkpoint %s auto-decided: %s", intr.CheckpointID, action)

	s.mu.Lock()
	streamCtx, req, rc, seq, err := s.resumeLocked(intr.CheckpointID, action, nil)
	s.mu.Unlock()
	if err != nil {
		log.Printf("WARN: auto-decision for checkpoint %s not applied: %v", intr.CheckpointID, err)
		return
	}
	go s.transport.Resume(streamCtx, req, s.handlers(rc, seq))
}

// ResumeExecution answers the pending interrupt and streams the continuation
// of the suspended run. modifiedArgs is only sent with the modify action.
func (s *Service) ResumeExecution(action domain.ResumeAction, modifiedArgs json.RawMessage) error {
	if !action.Valid() {
		return ErrInvalidResumeAction
	}

	s.mu.Lock()
	ctx, req, rc, seq, err := s.resumeLocked("", action, modifiedArgs)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	log.Printf("INFO: resuming run %s from checkpoint %s with %s", rc.id(), req.CheckpointID, action)
	go s.transport.Resume(ctx, req, s.handlers(rc, seq))
	return nil
}

// resumeLocked validates and applies a resume decision. A non-empty checkpoint
// must match the pending interrupt.
func (s *Service) resumeLocked(checkpoint string, action domain.ResumeAction, modifiedArgs json.RawMessage) (context.Context, *stream.ResumeRequest, *runContext, uint64, error) {
	rc := s.current
	if s.interrupt == nil || rc == nil || rc.status() != domain.RunStatusInterruptPending {
		return nil, nil, nil, 0, ErrNoPendingInterrupt
	}
	if checkpoint != "" && s.interrupt.CheckpointID != checkpoint {
		return nil, nil, nil, 0, ErrNoPendingInterrupt
	}
	if s.sessionID == "" {
		return nil, nil, nil, 0, ErrNoSession
	}
	if s.loading {
		return nil, nil, nil, 0, ErrResumeInFlight
	}

	req := &stream.ResumeRequest{
		SessionID:    s.sessionID,
		CheckpointID: s.interrupt.CheckpointID,
		Action:       action,
	}
	if action == domain.ResumeActionModify {
		req.ModifiedArgs = modifiedArgs
	}

	s.interrupt = nil
	s.loading = true
	rc.info.Status = domain.RunStatusResuming
	ctx, seq := s.attachStreamLocked(rc)
	return ctx, req, rc, seq, nil
}
