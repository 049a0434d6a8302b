package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// Message types from client to backend
const (
	TypeChat   = "chat"
	TypeResume = "resume"
)

type wsChatMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts"`
	ChatRequest
}

type wsResumeMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts"`
	ResumeRequest
}

// DefaultTrailingWindow is how long the connection stays open after a
// terminal event to receive trailing session events such as title_updated.
const DefaultTrailingWindow = 2 * time.Second

// WSClient streams run events over a WebSocket connection opened per request.
type WSClient struct {
	url      string
	dialer   *websocket.Dialer
	header   http.Header
	trailing time.Duration
}

// NewWSClient creates a new WebSocket client for the given ws:// or wss:// URL.
func NewWSClient(url string, handshakeTimeout time.Duration) *WSClient {
	return &WSClient{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header:   http.Header{},
		trailing: DefaultTrailingWindow,
	}
}

// Stream sends a chat message and delivers the events of the new run.
func (c *WSClient) Stream(ctx context.Context, req *ChatRequest, h Handlers) {
	msg := wsChatMessage{Type: TypeChat, Ts: time.Now().UnixMilli(), ChatRequest: *req}
	deliver(ctx, h, func(emit emitFunc) error {
		return c.exchange(ctx, msg, emit)
	})
}

// Resume sends a resume decision and delivers the events of the resumed run.
func (c *WSClient) Resume(ctx context.Context, req *ResumeRequest, h Handlers) {
	msg := wsResumeMessage{Type: TypeResume, Ts: time.Now().UnixMilli(), ResumeRequest: *req}
	deliver(ctx, h, func(emit emitFunc) error {
		return c.exchange(ctx, msg, emit)
	})
}

func (c *WSClient) exchange(ctx context.Context, msg interface{}, emit emitFunc) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the run is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	ended := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// After a terminal event the read deadline or the server's close
			// ends the trailing window.
			if ended {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			log.Printf("WARN: dropping undecodable websocket frame: %s", truncate(data, 200))
			continue
		}

		// Only session events may follow the end of the run.
		if ended && !env.Type.IsSession() {
			log.Printf("WARN: dropping %s frame received after the run ended", env.Type)
			continue
		}

		if err := emit(env); err != nil {
			return err
		}

		if !ended && endsStream(env.Type) {
			ended = true
			if err := conn.SetReadDeadline(time.Now().Add(c.trailing)); err != nil {
				return nil
			}
		}
	}
}

// endsStream reports whether the backend sends no further run events on this
// request after an event of type t.
func endsStream(t domain.EventType) bool {
	switch t {
	case domain.EventTypeDone, domain.EventTypeError, domain.EventTypeTerminated, domain.EventTypeInterrupt:
		return true
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
