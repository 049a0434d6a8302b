package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// maxLineSize bounds a single SSE line; tool outputs can be large.
const maxLineSize = 4 << 20

// SSEEvent represents a parsed SSE event.
type SSEEvent struct {
	Event string
	Data  string
}

// SSEClient streams run events from the backend over HTTP server-sent events.
type SSEClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSSEClient creates a new SSE client. A zero timeout leaves streams unbounded.
func NewSSEClient(baseURL string, timeout time.Duration) *SSEClient {
	return &SSEClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Stream calls POST /chat/stream and delivers the events of the new run.
func (c *SSEClient) Stream(ctx context.Context, req *ChatRequest, h Handlers) {
	deliver(ctx, h, func(emit emitFunc) error {
		return c.post(ctx, "/chat/stream", req.SessionID, req, emit)
	})
}

// Resume calls POST /chat/resume and delivers the events of the resumed run.
func (c *SSEClient) Resume(ctx context.Context, req *ResumeRequest, h Handlers) {
	deliver(ctx, h, func(emit emitFunc) error {
		return c.post(ctx, "/chat/resume", req.SessionID, req, emit)
	})
}

func (c *SSEClient) post(ctx context.Context, path, sessionID string, payload interface{}, emit emitFunc) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if sessionID != "" {
		httpReq.Header.Set("X-Session-ID", sessionID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return parseSSE(resp.Body, func(event SSEEvent) error {
		env, err := envelopeFromSSE(event)
		if err != nil {
			log.Printf("WARN: dropping undecodable SSE event: %v", err)
			return nil
		}
		return emit(env)
	})
}

// envelopeFromSSE decodes the data of an SSE event as an envelope. The SSE
// event name is used when the envelope carries no type of its own.
func envelopeFromSSE(event SSEEvent) (domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal([]byte(event.Data), &env); err != nil {
		return domain.Envelope{}, fmt.Errorf("failed to parse %q event: %w", event.Event, err)
	}
	if env.Type == "" {
		env.Type = domain.EventType(event.Event)
	}
	if env.Type == "" {
		return domain.Envelope{}, fmt.Errorf("event has no type")
	}
	return env, nil
}

// parseSSE parses an SSE stream and calls the handler for each event.
func parseSSE(reader io.Reader, handler func(SSEEvent) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var event SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if event.Event != "" || event.Data != "" {
				if err := handler(event); err != nil {
					return err
				}
				event = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
		// Ignore comments (lines starting with :) and other fields
	}

	if event.Event != "" || event.Data != "" {
		if err := handler(event); err != nil {
			return err
		}
	}

	return scanner.Err()
}
