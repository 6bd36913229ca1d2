package repository

import (
	"context"

	"github.com/user/listing-crawler/internal/entity"
)

// QueueRepository defines a FIFO queue of crawl requests.
type QueueRepository interface {
	// Push adds a request to the end of the queue.
	Push(ctx context.Context, req *entity.CrawlRequest) error
	// Pop removes and returns the oldest request, or ErrQueueEmpty.
	Pop(ctx context.Context) (*entity.CrawlRequest, error)
	// Size returns the current number of queued requests.
	Size(ctx context.Context) (int64, error)
}
