package domain

import (
	"errors"
	"fmt"
)

// TransportError is a stream or network failure of a run.
type TransportError struct {
	RunID string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("run %s: transport: %v", e.RunID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError is an error event reported by the backend.
type ApplicationError struct {
	RunID   string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("run %s: agent error: %s", e.RunID, e.Message)
}

// ProtocolError is an event the client cannot interpret. It is logged and
// the run continues.
type ProtocolError struct {
	Type   EventType
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %q", e.Reason, e.Type)
}

// IsProtocolError reports whether err is a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
