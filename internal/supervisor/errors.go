package supervisor

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes local failures. All of them are fatal.
type ErrorKind int

const (
	ErrorKindUnknown  ErrorKind = iota
	ErrorKindLaunch             // command could not be started
	ErrorKindWrite              // forwarding input to the command failed
	ErrorKindWait               // termination status could not be collected
	ErrorKindTerminal           // retry dialogue could not use the terminal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindLaunch:
		return "launch"
	case ErrorKindWrite:
		return "write"
	case ErrorKindWait:
		return "wait"
	case ErrorKindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Error is a local I/O or process failure. Its message is the single
// diagnostic line shown to the user.
type Error struct {
	Kind    ErrorKind
	Command string // mail command name

	// Terminal errors only
	Op       string // "opening", "writing to", "reading from", "prompting on"
	Device   string
	ExitCode int // exit code of the failed attempt being confirmed

	Err error
}

// Error implements error interface
func (e *Error) Error() string {
	switch e.Kind {
	case ErrorKindLaunch:
		return fmt.Sprintf("Error starting %s: %v", e.Command, e.Err)
	case ErrorKindWrite:
		return fmt.Sprintf("Error writing to %s stdin: %v", e.Command, e.Err)
	case ErrorKindWait:
		return fmt.Sprintf("Error waiting for %s: %v", e.Command, e.Err)
	case ErrorKindTerminal:
		return fmt.Sprintf("Error %s %s: %v (%s exit code was %d)", e.Op, e.Device, e.Err, e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("Error running %s: %v", e.Command, e.Err)
	}
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a launch, write or wait error
func NewError(kind ErrorKind, command string, err error) *Error {
	return &Error{
		Kind:    kind,
		Command: command,
		Err:     err,
	}
}

// NewTerminalError creates a terminal error for the dialogue about exitCode
func NewTerminalError(op, device, command string, exitCode int, err error) *Error {
	return &Error{
		Kind:     ErrorKindTerminal,
		Command:  command,
		Op:       op,
		Device:   device,
		ExitCode: exitCode,
		Err:      err,
	}
}

// KindOf returns the kind of err, or ErrorKindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindUnknown
}
