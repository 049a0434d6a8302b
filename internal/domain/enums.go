// Package domain defines the core domain models for the agent chat client.
package domain

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusIdle             RunStatus = "IDLE"
	RunStatusSending          RunStatus = "SENDING"
	RunStatusStreaming        RunStatus = "STREAMING"
	RunStatusInterruptPending RunStatus = "INTERRUPT_PENDING"
	RunStatusResuming         RunStatus = "RESUMING"
	RunStatusCompleted        RunStatus = "COMPLETED"
	RunStatusErrored          RunStatus = "ERRORED"
	RunStatusCancelled        RunStatus = "CANCELLED"
)

// Terminal reports whether no further events may change the run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusErrored, RunStatusCancelled:
		return true
	}
	return false
}

// EventType represents the type of a wire event.
type EventType string

const (
	// Session side-channel events
	EventTypeSessionCreated   EventType = "session_created"
	EventTypeSessionRecreated EventType = "session_recreated"
	EventTypeTitleUpdated     EventType = "title_updated"

	// Run events
	EventTypeThinking   EventType = "thinking"
	EventTypeText       EventType = "text"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeToolResult EventType = "tool_result"
	EventTypeInterrupt  EventType = "interrupt"
	EventTypeDone       EventType = "done"
	EventTypeError      EventType = "error"
	EventTypeTerminated EventType = "terminated"
)

// IsSession reports whether the event belongs to the session side channel
// rather than to the run.
func (t EventType) IsSession() bool {
	switch t {
	case EventTypeSessionCreated, EventTypeSessionRecreated, EventTypeTitleUpdated:
		return true
	}
	return false
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ResumeAction is the human decision on an interrupted run.
type ResumeAction string

const (
	ResumeActionApprove ResumeAction = "approve"
	ResumeActionReject  ResumeAction = "reject"
	ResumeActionModify  ResumeAction = "modify"
)

// Valid reports whether the action is one the backend understands.
func (a ResumeAction) Valid() bool {
	switch a {
	case ResumeActionApprove, ResumeActionReject, ResumeActionModify:
		return true
	}
	return false
}
