package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/storage/memory"
)

func runFixture(id string, startedAt time.Time) model.Run {
	return model.Run{
		ID:        id,
		Distro:    "archives",
		Status:    model.RunStatusRunning,
		Artifacts: 2,
		StartedAt: startedAt,
	}
}

func TestRepositoryCRUD(t *testing.T) {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	run := runFixture("run-1", time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	// Create.
	require.NoError(t, repo.CreateRun(ctx, run))
	err = repo.CreateRun(ctx, run)
	assert.ErrorIs(t, err, model.ErrNotValid, "duplicated ids must be rejected")

	// Get.
	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, *got)

	_, err = repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Update.
	finishedAt := run.StartedAt.Add(time.Minute)
	run.Status = model.RunStatusSucceeded
	run.FinishedAt = &finishedAt
	require.NoError(t, repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)

	err = repo.UpdateRun(ctx, runFixture("missing", run.StartedAt))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryListRunsNewestFirst(t *testing.T) {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-1", base)))
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-2", base.Add(time.Hour))))
	require.NoError(t, repo.CreateRun(ctx, runFixture("run-3", base.Add(time.Minute))))

	runs, err := repo.ListRuns(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"run-2", "run-3", "run-1"}, ids)
}

func TestRepositoryGetRunReturnsACopy(t *testing.T) {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.CreateRun(ctx, runFixture("run-1", time.Now().UTC())))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	got.Status = model.RunStatusFailed

	again, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, again.Status)
}
