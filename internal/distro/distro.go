// Package distro defines the distribution contract every destination plugin
// implements, plus the helpers shared by all of them: scoped temporary
// directories and the sequential per-artifact loop.
package distro

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/progress"
)

// Distro is one distribution destination. Implementations package and ship
// build artifacts through external tools.
type Distro interface {
	// Name returns the configured distro name.
	Name() string

	// Validate checks configuration (paths, credentials, tools) without
	// spawning any process. It fails fast with a descriptive error.
	Validate(ctx context.Context) error

	// Run ships the artifacts. Progress and cancellation flow through the
	// task; temporary resources are released on every exit path.
	Run(ctx context.Context, task *progress.Task, artifacts []model.BuildArtifact) error

	// Check runs preflight checks, e.g. external tool availability.
	Check(ctx context.Context) []model.CheckResult
}

// WithTempDir creates a temporary directory exclusively owned by the calling
// step and removes it when fn returns, on success, failure and cancellation
// alike.
func WithTempDir(pattern string, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return fmt.Errorf("could not create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("could not remove temp dir: %w", rmErr)
		}
	}()

	return fn(dir)
}

// EachArtifact runs fn for every artifact in order, checking cancellation
// between artifacts. With continueOnError the remaining artifacts still run
// after a failure and the first error is surfaced at the end; otherwise the
// loop fails fast. Cancellation always stops the loop.
func EachArtifact(task *progress.Task, artifacts []model.BuildArtifact, continueOnError bool, fn func(i int, a model.BuildArtifact) error) error {
	var firstErr error

	for i, a := range artifacts {
		if err := task.Err(); err != nil {
			return err
		}

		err := fn(i, a)
		if err == nil {
			continue
		}
		if errors.Is(err, model.ErrCanceled) {
			return err
		}
		if !continueOnError {
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
