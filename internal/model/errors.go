package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a configuration or resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrCanceled is returned when an operation ended because of an explicit
	// cancellation request or a forced-termination exit code.
	ErrCanceled = errors.New("canceled")
	// ErrTimeout is returned when a polling wait exceeded its maximum
	// duration. It is a distinct failure mode from a normal negative result.
	ErrTimeout = errors.New("timed out")
	// ErrAlreadyRunning is returned when a distribution run is started while
	// another one is already in flight.
	ErrAlreadyRunning = errors.New("already running")
)

// ProcessError is returned when an external tool exits with a non-success,
// non-cancellation code.
type ProcessError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}
