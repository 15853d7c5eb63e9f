package storage

import (
	"context"

	"github.com/shipway/shipway/internal/model"
)

// Repository is the interface for distribution run history persistence.
type Repository interface {
	CreateRun(ctx context.Context, r model.Run) error
	UpdateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
}
