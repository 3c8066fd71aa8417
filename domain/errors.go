package domain

import (
	"errors"
	"fmt"

	"github.com/onewhat/server/domain/entities"
)

// ErrInvalidRequest is returned for requests that fail validation before any stage runs.
var ErrInvalidRequest = errors.New("invalid request")

// ErrSessionNotFound is returned by session repositories for unknown IDs.
var ErrSessionNotFound = errors.New("session not found")

// StageError reports that one pipeline stage failed.
type StageError struct {
	Stage entities.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// UninitializedPipelineError reports that a stage has no engine configured.
type UninitializedPipelineError struct {
	Stage entities.Stage
}

func (e *UninitializedPipelineError) Error() string {
	return fmt.Sprintf("pipeline not initialized: no %s engine", e.Stage)
}

// SessionProtocolError reports a malformed streaming session message.
type SessionProtocolError struct {
	Field  string
	Reason string
}

func (e *SessionProtocolError) Error() string {
	if e.Field == "" {
		return "session protocol: " + e.Reason
	}
	return fmt.Sprintf("session protocol: %s: %s", e.Field, e.Reason)
}

// InvalidRequest wraps ErrInvalidRequest with a reason.
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// StageOf returns the failing stage if err carries one.
func StageOf(err error) (entities.Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	var ue *UninitializedPipelineError
	if errors.As(err, &ue) {
		return ue.Stage, true
	}
	return "", false
}
