package model

import (
	"time"
)

// RunStatus represents the state of a distribution run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Finished returns true when the status is terminal.
func (s RunStatus) Finished() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusCanceled
}

// Run represents one execution of a distribution, from start to a terminal
// state. The final status is the single authoritative outward signal, there
// is no partial "half-succeeded" state.
type Run struct {
	ID         string
	Distro     string
	Status     RunStatus
	Error      string
	Artifacts  int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns how long the run took, or how long it has been running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
