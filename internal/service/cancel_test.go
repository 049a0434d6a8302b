package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

func TestCancelBeforeAnyEvent(t *testing.T) {
	h := newHarness(t, Options{})

	runID, call := h.send(t, "hi")
	h.svc.CancelRequest()

	assert.True(t, call.Cancelled())
	state := h.svc.State()
	assert.False(t, state.Loading)
	assert.Equal(t, []string{"user:hi"}, contents(state.Messages))
	assert.Nil(t, state.CurrentRun)

	call.Emit(t, domain.EventTypeText, map[string]any{"content": "late"})
	call.Emit(t, domain.EventTypeDone, map[string]any{"final_message": map[string]any{"content": "late"}})

	state = h.svc.State()
	assert.Equal(t, []string{"user:hi"}, contents(state.Messages))
	assert.Equal(t, "", state.StreamingText)
	assert.Empty(t, h.errors())

	info, ok := h.svc.Run(runID)
	require.True(t, ok)
	assert.Equal(t, domain.RunStatusCancelled, info.Status)
}

func TestCancelDiscardsPartialOutput(t *testing.T) {
	h := newHarness(t, Options{})

	_, call := h.send(t, "hi")
	call.Emit(t, domain.EventTypeText, map[string]any{"content": "half an ans"})
	call.Emit(t, domain.EventTypeToolCall, map[string]any{"tool_call_id": "t1", "tool_name": "ls"})

	h.svc.CancelRequest()

	state := h.svc.State()
	assert.Equal(t, "", state.StreamingText)
	assert.Empty(t, state.PendingToolCalls)
	assert.Equal(t, []string{"user:hi"}, contents(state.Messages))
}

func TestCancelClearsPendingInterrupt(t *testing.T) {
	h := newHarness(t, Options{SessionID: "s1"})

	_, call := h.send(t, "x")
	call.Emit(t, domain.EventTypeInterrupt, interruptData())
	h.svc.CancelRequest()

	_, pending := h.svc.Interrupt()
	assert.False(t, pending)
	assert.ErrorIs(t, h.svc.ResumeExecution(domain.ResumeActionApprove, nil), ErrNoPendingInterrupt)
}

func TestCancelWithNothingOutstandingIsNoop(t *testing.T) {
	h := newHarness(t, Options{})
	h.svc.CancelRequest()

	_, call := h.send(t, "hi")
	call.Emit(t, domain.EventTypeDone, map[string]any{"final_message": map[string]any{"content": "ok"}})
	h.svc.CancelRequest()

	assert.Equal(t, []string{"user:hi", "assistant:ok"}, contents(h.svc.Messages()))
	h.transport.ExpectNone(t, 20*time.Millisecond)
}

func TestCancelDuringResume(t *testing.T) {
	h := newHarness(t, Options{SessionID: "s1"})

	runID, call := h.send(t, "x")
	call.Emit(t, domain.EventTypeInterrupt, interruptData())
	require.NoError(t, h.svc.ResumeExecution(domain.ResumeActionApprove, nil))
	resume := h.transport.Next(t)

	h.svc.CancelRequest()
	assert.True(t, resume.Cancelled())
	assert.False(t, h.svc.Loading())

	resume.Emit(t, domain.EventTypeDone, map[string]any{"final_message": map[string]any{"content": "late"}})
	assert.Equal(t, []string{"user:x"}, contents(h.svc.Messages()))

	info, _ := h.svc.Run(runID)
	assert.Equal(t, domain.RunStatusCancelled, info.Status)
}
