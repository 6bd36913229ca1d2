package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

const (
	progressPrefix = "crawler:progress:"
	progressTTL    = 24 * time.Hour
)

// ProgressRepoImpl keeps the latest progress snapshot of each run for a day.
type ProgressRepoImpl struct {
	client *redis.Client
}

func NewProgressRepo(client *redis.Client) *ProgressRepoImpl {
	return &ProgressRepoImpl{client: client}
}

func (r *ProgressRepoImpl) generateKey(runID string) string {
	return fmt.Sprintf("%s%s", progressPrefix, runID)
}

func (r *ProgressRepoImpl) Save(ctx context.Context, p *entity.Progress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.generateKey(p.RunID), payload, progressTTL).Err()
}

func (r *ProgressRepoImpl) Get(ctx context.Context, runID string) (*entity.Progress, error) {
	payload, err := r.client.Get(ctx, r.generateKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var p entity.Progress
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
