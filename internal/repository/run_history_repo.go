package repository

import (
	"context"

	"github.com/user/listing-crawler/internal/entity"
)

// RunHistoryRepository keeps a summary of every crawl run.
type RunHistoryRepository interface {
	// Save creates or updates the record of run.RunID.
	Save(ctx context.Context, run *entity.CrawlRun) error
	// FindByID returns ErrRunNotFound when the run is unknown.
	FindByID(ctx context.Context, runID string) (*entity.CrawlRun, error)
	// FindRecent returns the latest runs, newest first.
	FindRecent(ctx context.Context, limit int) ([]*entity.CrawlRun, error)
}
