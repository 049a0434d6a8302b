package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClientStreamStopsAtTerminalEvent(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		received <- msg
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"session_created","data":{"session_id":"s9"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"interrupt","data":{"checkpoint_id":"cp1"}}`))
		// Anything after the interrupt belongs to no request.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"text","data":{"content":"late"}}`))
		conn.ReadMessage()
	})

	rec := &recorder{}
	client := NewWSClient(url, time.Second)
	client.trailing = 50 * time.Millisecond
	client.Stream(context.Background(), &ChatRequest{Message: "hi", SessionID: "s1"}, rec.handlers())

	msg := <-received
	assert.Equal(t, TypeChat, msg["type"])
	assert.Equal(t, "hi", msg["message"])
	assert.Equal(t, "s1", msg["session_id"])

	assert.Equal(t, []domain.EventType{domain.EventTypeSessionCreated, domain.EventTypeInterrupt}, rec.types())
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}

func TestWSClientResumeSendsDecision(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		received <- msg
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"done","data":{"final_message":{"content":"ok"}}}`))
		conn.ReadMessage()
	})

	rec := &recorder{}
	client := NewWSClient(url, time.Second)
	client.trailing = 50 * time.Millisecond
	client.Resume(context.Background(), &ResumeRequest{
		SessionID: "s1", CheckpointID: "cp1", Action: domain.ResumeActionApprove,
	}, rec.handlers())

	msg := <-received
	assert.Equal(t, TypeResume, msg["type"])
	assert.Equal(t, "cp1", msg["checkpoint_id"])
	assert.Equal(t, "approve", msg["action"])
	assert.Equal(t, []domain.EventType{domain.EventTypeDone}, rec.types())
	assert.Equal(t, 1, rec.completed)
}

func TestWSClientCancellationIsNotAnError(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"text","data":{"content":"a"}}`))
		conn.ReadMessage()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	rec.onEvent = func(domain.Envelope) { cancel() }
	NewWSClient(url, time.Second).Stream(ctx, &ChatRequest{Message: "x"}, rec.handlers())

	assert.Len(t, rec.events, 1)
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}

func TestWSClientDialFailureReportsError(t *testing.T) {
	rec := &recorder{}
	NewWSClient("ws://127.0.0.1:1/ws", time.Second).Stream(context.Background(), &ChatRequest{Message: "x"}, rec.handlers())

	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "dial")
	assert.Equal(t, 1, rec.completed)
}

func TestWSClientDeliversTrailingSessionEvents(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"done","data":{"final_message":{"content":"ok"}}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"text","data":{"content":"late"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"title_updated","data":{"session_id":"s1","title":"Hi"}}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.ReadMessage()
	})

	rec := &recorder{}
	NewWSClient(url, time.Second).Stream(context.Background(), &ChatRequest{Message: "hi"}, rec.handlers())

	assert.Equal(t, []domain.EventType{domain.EventTypeDone, domain.EventTypeTitleUpdated}, rec.types())
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}

func TestWSClientTrailingWindowExpires(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","data":{"error":"boom"}}`))
		conn.ReadMessage()
	})

	rec := &recorder{}
	client := NewWSClient(url, time.Second)
	client.trailing = 50 * time.Millisecond

	start := time.Now()
	client.Stream(context.Background(), &ChatRequest{Message: "hi"}, rec.handlers())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []domain.EventType{domain.EventTypeError}, rec.types())
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completed)
}
