package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/listing-crawler/pkg/utils"
)

const runLockPrefix = "crawler:lock:"

// releaseScript deletes the lock only when it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLockRepoImpl is a single-holder lock per crawl target, expiring after a TTL
// so a crashed worker cannot block crawling forever.
type RunLockRepoImpl struct {
	client *redis.Client
	key    string
}

// NewRunLockRepo returns the lock guarding crawls of targetURL.
func NewRunLockRepo(client *redis.Client, targetURL string) *RunLockRepoImpl {
	return &RunLockRepoImpl{
		client: client,
		key:    fmt.Sprintf("%s%s", runLockPrefix, utils.HashURL(targetURL)),
	}
}

func (r *RunLockRepoImpl) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.key, owner, ttl).Result()
}

func (r *RunLockRepoImpl) Release(ctx context.Context, owner string) error {
	return releaseScript.Run(ctx, r.client, []string{r.key}, owner).Err()
}

func (r *RunLockRepoImpl) Holder(ctx context.Context) (string, error) {
	owner, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return owner, err
}
