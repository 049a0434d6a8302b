package domain

import (
	"bytes"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Envelope is the wire form of every streamed event.
type Envelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// Time returns the envelope timestamp. RFC3339 strings and numeric epochs
// (seconds or milliseconds) are accepted; anything else yields fallback.
func (e Envelope) Time(fallback time.Time) time.Time {
	raw := bytes.TrimSpace(e.Timestamp)
	if len(raw) == 0 || isNull(raw) {
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		return fallback
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		// Below 1e12 the value cannot be a millisecond epoch after 2001.
		if n < 1e12 {
			return time.UnixMilli(int64(n * 1000))
		}
		return time.UnixMilli(int64(n))
	}
	return fallback
}

// Event is the decoded, typed payload of an Envelope. The concrete type is
// one of the structs below, selected by EventType.
type Event interface {
	EventType() EventType
}

// SessionCreatedEvent announces the session id the backend assigned.
type SessionCreatedEvent struct {
	SessionID string
}

// SessionRecreatedEvent announces that the backend replaced the session sandbox.
type SessionRecreatedEvent struct {
	SessionID     string
	IsNew         bool
	IsRecreated   bool
	PreviousState json.RawMessage
	Message       string
}

// TitleUpdatedEvent announces a new session title.
type TitleUpdatedEvent struct {
	SessionID string
	Title     string
}

// ThinkingEvent marks a reasoning step.
type ThinkingEvent struct {
	Iteration int
	Status    string
}

// TextEvent carries a streamed text delta.
type TextEvent struct {
	Content string
}

// ToolCallEvent announces a tool invocation.
type ToolCallEvent struct {
	ToolCallID string
	ToolName   string
	Arguments  json.RawMessage
}

// ToolResultEvent answers a previously announced tool call.
type ToolResultEvent struct {
	ToolCallID string
	ToolName   string
	Success    bool
	Output     json.RawMessage
	Error      string
	DurationMs int64
}

// InterruptEvent suspends the run until a human decides on PendingAction.
type InterruptEvent struct {
	CheckpointID  string
	PendingAction json.RawMessage
	Reason        string
}

// DoneEvent completes the run.
type DoneEvent struct {
	FinalContent string
}

// ErrorEvent is an application error reported by the backend.
type ErrorEvent struct {
	Error string
}

// TerminatedEvent is the backend's unconditional end-of-run signal.
type TerminatedEvent struct{}

func (SessionCreatedEvent) EventType() EventType   { return EventTypeSessionCreated }
func (SessionRecreatedEvent) EventType() EventType { return EventTypeSessionRecreated }
func (TitleUpdatedEvent) EventType() EventType     { return EventTypeTitleUpdated }
func (ThinkingEvent) EventType() EventType         { return EventTypeThinking }
func (TextEvent) EventType() EventType             { return EventTypeText }
func (ToolCallEvent) EventType() EventType         { return EventTypeToolCall }
func (ToolResultEvent) EventType() EventType       { return EventTypeToolResult }
func (InterruptEvent) EventType() EventType        { return EventTypeInterrupt }
func (DoneEvent) EventType() EventType             { return EventTypeDone }
func (ErrorEvent) EventType() EventType            { return EventTypeError }
func (TerminatedEvent) EventType() EventType       { return EventTypeTerminated }

// LegacyToolCallIDField is the camelCase correlation field some backends send
// on tool_result instead of tool_call_id.
const LegacyToolCallIDField = "toolCallId"

var legacyFieldWarning sync.Once

// Decode converts an envelope into its typed event. Each data field is decoded
// independently so a malformed field falls back to its zero value instead of
// failing the whole event. An error event whose data is not an object still
// yields an ErrorEvent carrying the data as text. Unknown types and other run
// events whose data is not a JSON object yield a *ProtocolError.
func Decode(env Envelope) (Event, error) {
	f, ok := parseFields(env.Data)
	if !ok && env.Type == EventTypeError {
		return ErrorEvent{Error: looseText(env.Data)}, nil
	}
	if !ok && !env.Type.IsSession() && env.Type != EventTypeTerminated {
		if _, known := knownTypes[env.Type]; known {
			return nil, &ProtocolError{Type: env.Type, Reason: "data is not an object"}
		}
	}

	switch env.Type {
	case EventTypeSessionCreated:
		return SessionCreatedEvent{SessionID: f.str("session_id")}, nil
	case EventTypeSessionRecreated:
		return SessionRecreatedEvent{
			SessionID:     f.str("session_id"),
			IsNew:         f.boolean("is_new"),
			IsRecreated:   f.boolean("is_recreated"),
			PreviousState: f.raw("previous_state"),
			Message:       f.str("message"),
		}, nil
	case EventTypeTitleUpdated:
		return TitleUpdatedEvent{SessionID: f.str("session_id"), Title: f.str("title")}, nil
	case EventTypeThinking:
		return ThinkingEvent{Iteration: int(f.number("iteration")), Status: f.str("status")}, nil
	case EventTypeText:
		return TextEvent{Content: f.str("content")}, nil
	case EventTypeToolCall:
		return ToolCallEvent{
			ToolCallID: f.str("tool_call_id"),
			ToolName:   f.str("tool_name"),
			Arguments:  f.raw("arguments"),
		}, nil
	case EventTypeToolResult:
		id := f.str("tool_call_id")
		if id == "" {
			if legacy := f.str(LegacyToolCallIDField); legacy != "" {
				legacyFieldWarning.Do(func() {
					log.Printf("WARN: tool_result uses legacy %q field, mapping it to tool_call_id", LegacyToolCallIDField)
				})
				id = legacy
			}
		}
		return ToolResultEvent{
			ToolCallID: id,
			ToolName:   f.str("tool_name"),
			Success:    f.boolean("success"),
			Output:     f.raw("output"),
			Error:      f.text("error"),
			DurationMs: int64(f.number("duration_ms")),
		}, nil
	case EventTypeInterrupt:
		return InterruptEvent{
			CheckpointID:  f.str("checkpoint_id"),
			PendingAction: f.raw("pending_action"),
			Reason:        f.str("reason"),
		}, nil
	case EventTypeDone:
		return DoneEvent{FinalContent: f.finalContent()}, nil
	case EventTypeError:
		return ErrorEvent{Error: f.text("error")}, nil
	case EventTypeTerminated:
		return TerminatedEvent{}, nil
	default:
		return nil, &ProtocolError{Type: env.Type, Reason: "unknown event type"}
	}
}

var knownTypes = map[EventType]struct{}{
	EventTypeSessionCreated:   {},
	EventTypeSessionRecreated: {},
	EventTypeTitleUpdated:     {},
	EventTypeThinking:         {},
	EventTypeText:             {},
	EventTypeToolCall:         {},
	EventTypeToolResult:       {},
	EventTypeInterrupt:        {},
	EventTypeDone:             {},
	EventTypeError:            {},
	EventTypeTerminated:       {},
}

// fields holds the undecoded members of an event's data object.
type fields map[string]json.RawMessage

// parseFields reports false when data is present but is not a JSON object.
// Absent data yields an empty set of fields.
func parseFields(data json.RawMessage) (fields, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || isNull(data) {
		return fields{}, true
	}
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return fields{}, false
	}
	return f, true
}

func (f fields) str(key string) string {
	var s string
	if err := json.Unmarshal(f[key], &s); err != nil {
		return ""
	}
	return s
}

func (f fields) boolean(key string) bool {
	var b bool
	if err := json.Unmarshal(f[key], &b); err != nil {
		return false
	}
	return b
}

func (f fields) number(key string) float64 {
	var n float64
	if err := json.Unmarshal(f[key], &n); err != nil {
		return 0
	}
	return n
}

func (f fields) raw(key string) json.RawMessage {
	v := bytes.TrimSpace(f[key])
	if len(v) == 0 || isNull(v) {
		return nil
	}
	return json.RawMessage(v)
}

// text reads a human readable message that may be sent either as a string or
// as an object with a message member.
func (f fields) text(key string) string {
	if s := f.str(key); s != "" {
		return s
	}
	v := f.raw(key)
	if v == nil {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(v, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(v)
}

// finalContent reads final_message.content, also accepting a bare string.
func (f fields) finalContent() string {
	if s := f.str("final_message"); s != "" {
		return s
	}
	var msg struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(f["final_message"], &msg); err != nil {
		return ""
	}
	return msg.Content
}

// looseText renders a JSON value as a message: strings are unquoted, anything
// else is kept verbatim.
func looseText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw []byte) bool {
	return bytes.Equal(raw, []byte("null"))
}
