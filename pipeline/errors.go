package pipeline

import (
	"errors"
	"fmt"
)

// Orchestration errors.
var (
	// ErrInvalidOptions indicates an unusable configuration.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrStopped is returned by a Display to end the session normally.
	ErrStopped = errors.New("session stopped")
)

// Severity tells the caller how far a failure reaches.
type Severity int

const (
	// AbortSession ends the current session; the process may start another.
	AbortSession Severity = iota
	// AbortProcess means the process should exit.
	AbortProcess
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case AbortSession:
		return "abort-session"
	case AbortProcess:
		return "abort-process"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Error is a failed orchestration step.
type Error struct {
	Op       string
	Severity Severity
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func sessionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Severity: AbortSession, Err: err}
}

func processError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Severity: AbortProcess, Err: err}
}

// IsFatal reports whether err asks the process to exit.
func IsFatal(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Severity == AbortProcess
}
