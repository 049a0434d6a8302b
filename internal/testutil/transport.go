package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/stream"
	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// Call is one stream opened through a FakeTransport. The test drives it by
// emitting events and ending it.
type Call struct {
	Ctx    context.Context
	Chat   *stream.ChatRequest
	Resume *stream.ResumeRequest

	h    stream.Handlers
	done chan struct{}
	once sync.Once
}

// Emit delivers an event whose data is data marshalled to JSON. Events are
// delivered even after cancellation, as a racing transport would.
func (c *Call) Emit(t *testing.T, eventType domain.EventType, data any) {
	t.Helper()

	env := domain.Envelope{Type: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("failed to marshal %s data: %v", eventType, err)
		}
		env.Data = raw
	}
	c.EmitEnvelope(env)
}

// EmitEnvelope delivers a raw envelope.
func (c *Call) EmitEnvelope(env domain.Envelope) {
	if c.h.OnEvent != nil {
		c.h.OnEvent(env)
	}
}

// Fail reports a transport error and ends the stream.
func (c *Call) Fail(err error) {
	if c.h.OnError != nil {
		c.h.OnError(err)
	}
	c.End()
}

// End completes the stream. OnComplete has run when End returns.
func (c *Call) End() {
	c.once.Do(func() {
		close(c.done)
		if c.h.OnComplete != nil {
			c.h.OnComplete()
		}
	})
}

// Cancelled reports whether the stream's context has been cancelled.
func (c *Call) Cancelled() bool {
	return c.Ctx.Err() != nil
}

// FakeTransport is a stream.Transport whose streams are driven by the test.
type FakeTransport struct {
	calls chan *Call
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{calls: make(chan *Call, 32)}
}

// Stream implements stream.Transport.
func (f *FakeTransport) Stream(ctx context.Context, req *stream.ChatRequest, h stream.Handlers) {
	c := &Call{Ctx: ctx, Chat: req, h: h, done: make(chan struct{})}
	f.calls <- c
	f.wait(c)
}

// Resume implements stream.Transport.
func (f *FakeTransport) Resume(ctx context.Context, req *stream.ResumeRequest, h stream.Handlers) {
	c := &Call{Ctx: ctx, Resume: req, h: h, done: make(chan struct{})}
	f.calls <- c
	f.wait(c)
}

func (f *FakeTransport) wait(c *Call) {
	select {
	case <-c.done:
	case <-c.Ctx.Done():
		c.End()
	}
}

// Next returns the next opened stream, failing the test if none opens in time.
func (f *FakeTransport) Next(t *testing.T) *Call {
	t.Helper()

	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("no stream was opened")
		return nil
	}
}

// ExpectNone fails the test if a stream is opened within wait.
func (f *FakeTransport) ExpectNone(t *testing.T, wait time.Duration) {
	t.Helper()

	select {
	case c := <-f.calls:
		t.Fatalf("unexpected stream opened: chat=%v resume=%v", c.Chat, c.Resume)
	case <-time.After(wait):
	}
}
