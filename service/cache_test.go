// service/cache_test.go
package service

import (
	"context"
	"errors"
	"go-ledger-engine/model"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// fakeCacheClient is an in-memory stand-in for the Redis client.
type fakeCacheClient struct {
	values map[string]string
	getErr error
}

func newFakeCacheClient() *fakeCacheClient {
	return &fakeCacheClient{values: make(map[string]string)}
}

func (f *fakeCacheClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestStatusCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeCacheClient()
	cache := NewStatusCache(client)

	_, ok := cache.Get(ctx, "t-1")
	assert.False(t, ok)

	cache.Set(ctx, "t-1", model.StatusCompleted)

	status, ok := cache.Get(ctx, "t-1")
	assert.True(t, ok)
	assert.Equal(t, model.StatusCompleted, status)
}

func TestStatusCache_OnlyTerminalStatuses(t *testing.T) {
	ctx := context.Background()
	client := newFakeCacheClient()
	cache := NewStatusCache(client)

	cache.Set(ctx, "t-1", model.StatusPending)

	_, ok := cache.Get(ctx, "t-1")
	assert.False(t, ok)
	assert.Empty(t, client.values)
}

func TestStatusCache_ErrorsAreMisses(t *testing.T) {
	ctx := context.Background()
	client := newFakeCacheClient()
	client.getErr = errors.New("connection refused")
	cache := NewStatusCache(client)

	_, ok := cache.Get(ctx, "t-1")
	assert.False(t, ok)
}

func TestStatusCache_NilIsNoop(t *testing.T) {
	ctx := context.Background()
	var cache *StatusCache

	cache.Set(ctx, "t-1", model.StatusCompleted)
	_, ok := cache.Get(ctx, "t-1")
	assert.False(t, ok)
}
