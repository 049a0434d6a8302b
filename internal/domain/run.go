package domain

import (
	"encoding/json"
	"time"
)

// Message represents a single message in the conversation history.
type Message struct {
	MessageID string           `json:"message_id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// MessageMetadata carries optional message annotations.
type MessageMetadata struct {
	RunID string `json:"run_id,omitempty"`
}

// ToolCallRecord is a tool invocation announced by the agent and not yet
// answered by a matching tool_result.
type ToolCallRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ProcessEvent is a timeline entry for replay.
type ProcessEvent struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InterruptState describes a run suspended awaiting a human decision.
type InterruptState struct {
	CheckpointID  string          `json:"checkpoint_id"`
	PendingAction json.RawMessage `json:"pending_action,omitempty"`
	Reason        string          `json:"reason"`
}

// SessionRecreationInfo is surfaced when the backend replaced an expired
// sandbox session with a new one.
type SessionRecreationInfo struct {
	SessionID     string          `json:"session_id"`
	IsNew         bool            `json:"is_new"`
	IsRecreated   bool            `json:"is_recreated"`
	PreviousState json.RawMessage `json:"previous_state,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// RunInfo represents a single send-message cycle.
type RunInfo struct {
	RunID     string     `json:"run_id"`
	SessionID string     `json:"session_id,omitempty"`
	Status    RunStatus  `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
