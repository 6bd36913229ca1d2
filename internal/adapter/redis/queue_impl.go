package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

const crawlQueueKey = "crawler:requests"

// QueueRepoImpl is a FIFO of crawl requests on a Redis list.
type QueueRepoImpl struct {
	client *redis.Client
}

func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a request to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, req *entity.CrawlRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, crawlQueueKey, payload).Err()
}

// Pop takes the oldest request from the right side of the list.
func (r *QueueRepoImpl) Pop(ctx context.Context) (*entity.CrawlRequest, error) {
	payload, err := r.client.RPop(ctx, crawlQueueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	var req entity.CrawlRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, crawlQueueKey).Result()
}
