package mock

import (
	"context"
	"time"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

var (
	_ repository.ListingRepository    = (*ListingRepository)(nil)
	_ repository.RunHistoryRepository = (*RunHistoryRepository)(nil)
	_ repository.QueueRepository      = (*QueueRepository)(nil)
	_ repository.RunLockRepository    = (*RunLockRepository)(nil)
	_ repository.ProgressRepository   = (*ProgressRepository)(nil)
	_ repository.Notifier             = (*Notifier)(nil)
)

type ListingRepository struct {
	NextAvailableIDFn func(ctx context.Context) (int64, error)
	AppendRecordsFn   func(ctx context.Context, records []entity.ListingRecord) error
}

func (m *ListingRepository) NextAvailableID(ctx context.Context) (int64, error) {
	return m.NextAvailableIDFn(ctx)
}

func (m *ListingRepository) AppendRecords(ctx context.Context, records []entity.ListingRecord) error {
	return m.AppendRecordsFn(ctx, records)
}

type RunHistoryRepository struct {
	SaveFn       func(ctx context.Context, run *entity.CrawlRun) error
	FindByIDFn   func(ctx context.Context, runID string) (*entity.CrawlRun, error)
	FindRecentFn func(ctx context.Context, limit int) ([]*entity.CrawlRun, error)
}

func (m *RunHistoryRepository) Save(ctx context.Context, run *entity.CrawlRun) error {
	return m.SaveFn(ctx, run)
}

func (m *RunHistoryRepository) FindByID(ctx context.Context, runID string) (*entity.CrawlRun, error) {
	return m.FindByIDFn(ctx, runID)
}

func (m *RunHistoryRepository) FindRecent(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	return m.FindRecentFn(ctx, limit)
}

type QueueRepository struct {
	PushFn func(ctx context.Context, req *entity.CrawlRequest) error
	PopFn  func(ctx context.Context) (*entity.CrawlRequest, error)
	SizeFn func(ctx context.Context) (int64, error)
}

func (m *QueueRepository) Push(ctx context.Context, req *entity.CrawlRequest) error {
	return m.PushFn(ctx, req)
}

func (m *QueueRepository) Pop(ctx context.Context) (*entity.CrawlRequest, error) {
	return m.PopFn(ctx)
}

func (m *QueueRepository) Size(ctx context.Context) (int64, error) {
	return m.SizeFn(ctx)
}

type RunLockRepository struct {
	AcquireFn func(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseFn func(ctx context.Context, owner string) error
	HolderFn  func(ctx context.Context) (string, error)
}

func (m *RunLockRepository) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return m.AcquireFn(ctx, owner, ttl)
}

func (m *RunLockRepository) Release(ctx context.Context, owner string) error {
	return m.ReleaseFn(ctx, owner)
}

func (m *RunLockRepository) Holder(ctx context.Context) (string, error) {
	return m.HolderFn(ctx)
}

type ProgressRepository struct {
	SaveFn func(ctx context.Context, p *entity.Progress) error
	GetFn  func(ctx context.Context, runID string) (*entity.Progress, error)
}

func (m *ProgressRepository) Save(ctx context.Context, p *entity.Progress) error {
	return m.SaveFn(ctx, p)
}

func (m *ProgressRepository) Get(ctx context.Context, runID string) (*entity.Progress, error) {
	return m.GetFn(ctx, runID)
}

type Notifier struct {
	NotifyFn func(ctx context.Context, recordCount int) error
}

func (m *Notifier) Notify(ctx context.Context, recordCount int) error {
	return m.NotifyFn(ctx, recordCount)
}
