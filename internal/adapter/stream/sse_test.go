package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// recorder collects handler calls.
type recorder struct {
	events    []domain.Envelope
	errs      []error
	completed int
	onEvent   func(domain.Envelope)
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnEvent: func(env domain.Envelope) {
			r.events = append(r.events, env)
			if r.onEvent != nil {
				r.onEvent(env)
			}
		},
		OnError:    func(err error) { r.errs = append(r.errs, err) },
		OnComplete: func() { r.completed++ },
	}
}

func (r *recorder) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(r.events))
	for _, env := range r.events {
		out = append(out, env.Type)
	}
	return out
}

func TestSSEClientStreamDeliversEventsInOrder(t *testing.T) {
	var gotHeaders http.Header
	var gotReq ChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/stream" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"thinking\",\"data\":{\"iteration\":1}}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"type\":\"text\",\"data\":{\"content\":\"he\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"text\",\"data\":{\"content\":\"llo\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"done\",\"data\":{\"final_message\":{\"content\":\"hello\"}}}\n\n")
	}))
	defer server.Close()

	client := NewSSEClient(server.URL, time.Second)
	rec := &recorder{}
	client.Stream(context.Background(), &ChatRequest{Message: "hi", SessionID: "sess-1"}, rec.handlers())

	assert.Equal(t, "hi", gotReq.Message)
	assert.Equal(t, "sess-1", gotHeaders.Get("X-Session-ID"))
	assert.Equal(t, "text/event-stream", gotHeaders.Get("Accept"))
	assert.Equal(t, []domain.EventType{
		domain.EventTypeThinking, domain.EventTypeText, domain.EventTypeText, domain.EventTypeDone,
	}, rec.types())
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}

func TestSSEClientUsesEventNameWhenTypeMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: tool_call\ndata: {\"data\":{\"tool_call_id\":\"tc1\"}}\n\n")
		fmt.Fprint(w, "event: text\ndata: not json\n\n")
	}))
	defer server.Close()

	rec := &recorder{}
	NewSSEClient(server.URL, time.Second).Stream(context.Background(), &ChatRequest{Message: "x"}, rec.handlers())

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.EventTypeToolCall, rec.events[0].Type)
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}

func TestSSEClientResumePostsCheckpoint(t *testing.T) {
	var gotReq ResumeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/resume" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		fmt.Fprint(w, "data: {\"type\":\"terminated\"}\n\n")
	}))
	defer server.Close()

	rec := &recorder{}
	NewSSEClient(server.URL, time.Second).Resume(context.Background(), &ResumeRequest{
		SessionID:    "s1",
		CheckpointID: "cp1",
		Action:       domain.ResumeActionModify,
		ModifiedArgs: json.RawMessage(`{"path":"/tmp"}`),
	}, rec.handlers())

	assert.Equal(t, "cp1", gotReq.CheckpointID)
	assert.Equal(t, domain.ResumeActionModify, gotReq.Action)
	assert.JSONEq(t, `{"path":"/tmp"}`, string(gotReq.ModifiedArgs))
	assert.Equal(t, []domain.EventType{domain.EventTypeTerminated}, rec.types())
	assert.Equal(t, 1, rec.completed)
}

func TestSSEClientNon200ReportsErrorOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sandbox unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	rec := &recorder{}
	NewSSEClient(server.URL, time.Second).Stream(context.Background(), &ChatRequest{Message: "x"}, rec.handlers())

	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "502")
	assert.Contains(t, rec.errs[0].Error(), "sandbox unavailable")
	assert.Empty(t, rec.events)
	assert.Equal(t, 1, rec.completed)
}

func TestSSEClientCancellationIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"text\",\"data\":{\"content\":\"a\"}}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	rec.onEvent = func(domain.Envelope) { cancel() }
	NewSSEClient(server.URL, 0).Stream(ctx, &ChatRequest{Message: "x"}, rec.handlers())

	assert.Len(t, rec.events, 1)
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}

func TestParseSSEMultilineData(t *testing.T) {
	input := "event: delta\n" +
		"data: first line\n" +
		"data: second line\n\n"

	var events []SSEEvent
	err := parseSSE(strings.NewReader(input), func(event SSEEvent) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "first line\nsecond line", events[0].Data)
}

func TestParseSSETrailingEventWithoutBlankLine(t *testing.T) {
	var events []SSEEvent
	err := parseSSE(strings.NewReader("data: {\"type\":\"done\"}"), func(event SSEEvent) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
}
