package mock

import (
	"context"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/usecase"
)

var _ usecase.RunManager = (*RunManager)(nil)

type RunManager struct {
	SubmitFn    func(ctx context.Context, pages int, source string) (*entity.CrawlRequest, error)
	GetStatusFn func(ctx context.Context, runID string) (*entity.Progress, error)
	RecentFn    func(ctx context.Context, limit int) ([]*entity.CrawlRun, error)
}

func (m *RunManager) Submit(ctx context.Context, pages int, source string) (*entity.CrawlRequest, error) {
	return m.SubmitFn(ctx, pages, source)
}

func (m *RunManager) GetStatus(ctx context.Context, runID string) (*entity.Progress, error) {
	return m.GetStatusFn(ctx, runID)
}

func (m *RunManager) Recent(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	return m.RecentFn(ctx, limit)
}
