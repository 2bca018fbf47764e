package service

import (
	"context"
	"time"

	"gestistock/internal/redisclient"
	"gestistock/internal/util"

	"go.uber.org/zap"
)

const (
	salesStatsKey = "stats:sales"
	stockStatsKey = "stats:stock"
)

// statsCache caches dashboard aggregates. A nil redis client disables it;
// cache failures fall through to the store.
type statsCache struct {
	redis *redisclient.Client
	ttl   time.Duration
}

func (c statsCache) load(ctx context.Context, key string, dest interface{}, compute func() error) error {
	if c.redis == nil || c.ttl <= 0 {
		return compute()
	}

	found, err := c.redis.GetJSON(ctx, key, dest)
	if err != nil {
		util.LoggerFrom(ctx).Warn("Stats cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		util.StatsCacheTotal.WithLabelValues("hit").Inc()
		return nil
	}
	util.StatsCacheTotal.WithLabelValues("miss").Inc()

	if err := compute(); err != nil {
		return err
	}
	if err := c.redis.SetJSON(ctx, key, dest, c.ttl); err != nil {
		util.LoggerFrom(ctx).Warn("Stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (c statsCache) invalidate(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Invalidate(ctx, keys...); err != nil {
		util.LoggerFrom(ctx).Warn("Stats cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
