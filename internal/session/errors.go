package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned by commands issued outside an active session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionActive is returned when starting a second session on one coordinator.
	ErrSessionActive = errors.New("session already started")
	// ErrCameraOff is returned by CheckNow while the camera is stopped.
	ErrCameraOff = errors.New("camera is not running")
)

// SessionStartError means no session id could be obtained; no detection runs.
type SessionStartError struct {
	ModuleID string
	Err      error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("failed to start session for module %q: %v", e.ModuleID, e.Err)
}

func (e *SessionStartError) Unwrap() error { return e.Err }
