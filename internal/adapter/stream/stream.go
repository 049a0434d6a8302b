// Package stream provides the transports that carry a run's event stream
// from the agent backend to the client.
package stream

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// ChatRequest starts a run for one user message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// ResumeRequest continues a run suspended at a checkpoint.
type ResumeRequest struct {
	SessionID    string              `json:"session_id"`
	CheckpointID string              `json:"checkpoint_id"`
	Action       domain.ResumeAction `json:"action"`
	ModifiedArgs json.RawMessage     `json:"modified_args,omitempty"`
}

// Handlers receive the outcome of one stream.
//
// OnEvent is called for every event in arrival order. OnError is called at
// most once, and never because ctx was cancelled. OnComplete is called exactly
// once when the stream ends for any reason.
type Handlers struct {
	OnEvent    func(domain.Envelope)
	OnError    func(error)
	OnComplete func()
}

// Transport opens event streams. Both methods block until the stream ends;
// cancelling ctx stops delivery.
type Transport interface {
	Stream(ctx context.Context, req *ChatRequest, h Handlers)
	Resume(ctx context.Context, req *ResumeRequest, h Handlers)
}

// errStopped is returned by an emit func to stop a pump without error.
var errStopped = errors.New("stream stopped")

// emitFunc hands one envelope to the consumer. It returns errStopped once
// ctx has been cancelled.
type emitFunc func(domain.Envelope) error

// deliver runs pump and applies the Handlers contract around it.
func deliver(ctx context.Context, h Handlers, pump func(emit emitFunc) error) {
	defer func() {
		if h.OnComplete != nil {
			h.OnComplete()
		}
	}()

	err := pump(func(env domain.Envelope) error {
		if ctx.Err() != nil {
			return errStopped
		}
		if h.OnEvent != nil {
			h.OnEvent(env)
		}
		return nil
	})

	if err == nil || errors.Is(err, errStopped) || ctx.Err() != nil {
		return
	}
	if h.OnError != nil {
		h.OnError(err)
	}
}
