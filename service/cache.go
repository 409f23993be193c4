// file: service/cache.go

package service

import (
	"context"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient defines the contract for a cache client.
// This abstraction decouples the status cache from a concrete Redis
// implementation, enabling easier testing and future flexibility.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const statusCacheTTL = 24 * time.Hour

// StatusCache is a read-through cache of terminal transfer statuses in front
// of the idempotency guard's table read. Only COMPLETED and FAILED statuses
// are cached; they are immutable, so a stale hit is impossible and a miss
// just falls through to the database. A nil StatusCache is a no-op.
type StatusCache struct {
	client ICacheClient
}

func NewStatusCache(client ICacheClient) *StatusCache {
	return &StatusCache{client: client}
}

func cacheKey(transferID string) string {
	return "transfer:status:" + transferID
}

func (c *StatusCache) Get(ctx context.Context, transferID string) (model.TransferStatus, bool) {
	if c == nil || c.client == nil {
		return "", false
	}

	val, err := c.client.Get(ctx, cacheKey(transferID)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithField("transfer_id", transferID).WithError(err).Warn("Status cache read failed")
		}
		return "", false
	}

	status := model.TransferStatus(val)
	if !status.IsTerminal() {
		return "", false
	}
	return status, true
}

func (c *StatusCache) Set(ctx context.Context, transferID string, status model.TransferStatus) {
	if c == nil || c.client == nil || !status.IsTerminal() {
		return
	}

	if err := c.client.Set(ctx, cacheKey(transferID), string(status), statusCacheTTL).Err(); err != nil {
		logger.Log.WithField("transfer_id", transferID).WithError(err).Warn("Status cache write failed")
	}
}
