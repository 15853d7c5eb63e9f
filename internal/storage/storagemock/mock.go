package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shipway/shipway/internal/model"
)

// Repository is a mock implementation of storage.Repository.
type Repository struct {
	mock.Mock
}

// CreateRun satisfies storage.Repository interface.
func (m *Repository) CreateRun(ctx context.Context, run model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// UpdateRun satisfies storage.Repository interface.
func (m *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// GetRun satisfies storage.Repository interface.
func (m *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.Run)
	return r, args.Error(1)
}

// ListRuns satisfies storage.Repository interface.
func (m *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]model.Run)
	return r, args.Error(1)
}
