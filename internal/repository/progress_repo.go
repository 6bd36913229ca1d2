package repository

import (
	"context"

	"github.com/user/listing-crawler/internal/entity"
)

// ProgressRepository stores the latest progress snapshot of each run.
type ProgressRepository interface {
	Save(ctx context.Context, p *entity.Progress) error
	// Get returns ErrRunNotFound for unknown runs.
	Get(ctx context.Context, runID string) (*entity.Progress, error)
}
