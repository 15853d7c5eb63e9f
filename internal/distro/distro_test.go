package distro_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipway/shipway/internal/distro"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/progress"
)

func newTask(t *testing.T) *progress.Task {
	t.Helper()
	tracker, err := progress.NewTracker(progress.TrackerConfig{})
	require.NoError(t, err)
	return tracker.Start(context.Background(), "test")
}

func TestWithTempDir(t *testing.T) {
	var dir string
	err := distro.WithTempDir("shipway-test-*", func(d string) error {
		dir = d
		_, err := os.Stat(d)
		return err
	})
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "temp dir must be removed after fn returns")
}

func TestWithTempDirRemovesOnFailure(t *testing.T) {
	expErr := errors.New("step failed")

	var dir string
	err := distro.WithTempDir("shipway-test-*", func(d string) error {
		dir = d
		return expErr
	})
	assert.ErrorIs(t, err, expErr)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEachArtifact(t *testing.T) {
	artifacts := []model.BuildArtifact{
		{Platform: model.PlatformWindows},
		{Platform: model.PlatformMacOS},
		{Platform: model.PlatformLinux},
	}
	failOn := func(p model.Platform, err error) func(int, model.BuildArtifact) error {
		return func(_ int, a model.BuildArtifact) error {
			if a.Platform == p {
				return err
			}
			return nil
		}
	}

	t.Run("Visits every artifact in order.", func(t *testing.T) {
		var visited []model.Platform
		err := distro.EachArtifact(newTask(t), artifacts, false, func(_ int, a model.BuildArtifact) error {
			visited = append(visited, a.Platform)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []model.Platform{model.PlatformWindows, model.PlatformMacOS, model.PlatformLinux}, visited)
	})

	t.Run("Fails fast by default.", func(t *testing.T) {
		boom := errors.New("boom")
		count := 0
		err := distro.EachArtifact(newTask(t), artifacts, false, func(_ int, a model.BuildArtifact) error {
			count++
			return failOn(model.PlatformWindows, boom)(0, a)
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count)
	})

	t.Run("Continues on error and surfaces the first failure.", func(t *testing.T) {
		first := errors.New("first")
		count := 0
		err := distro.EachArtifact(newTask(t), artifacts, true, func(_ int, a model.BuildArtifact) error {
			count++
			if a.Platform == model.PlatformWindows {
				return first
			}
			if a.Platform == model.PlatformMacOS {
				return errors.New("second")
			}
			return nil
		})
		assert.ErrorIs(t, err, first)
		assert.Equal(t, 3, count)
	})

	t.Run("Cancellation stops the loop even with continue on error.", func(t *testing.T) {
		task := newTask(t)
		count := 0
		err := distro.EachArtifact(task, artifacts, true, func(_ int, _ model.BuildArtifact) error {
			count++
			task.Cancel()
			return nil
		})
		assert.ErrorIs(t, err, model.ErrCanceled)
		assert.Equal(t, 1, count)
	})

	t.Run("A cancellation error from the step is never swallowed.", func(t *testing.T) {
		err := distro.EachArtifact(newTask(t), artifacts, true, func(_ int, _ model.BuildArtifact) error {
			return model.ErrCanceled
		})
		assert.ErrorIs(t, err, model.ErrCanceled)
	})
}
