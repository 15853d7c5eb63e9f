// Package distromock provides a testify mock of the distro.Distro interface.
package distromock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/progress"
)

// Distro is a mock implementation of distro.Distro.
type Distro struct {
	mock.Mock
}

func (m *Distro) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Distro) Validate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Distro) Run(ctx context.Context, task *progress.Task, artifacts []model.BuildArtifact) error {
	args := m.Called(ctx, task, artifacts)
	return args.Error(0)
}

func (m *Distro) Check(ctx context.Context) []model.CheckResult {
	args := m.Called(ctx)
	return args.Get(0).([]model.CheckResult)
}
