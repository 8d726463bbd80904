package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobpilot/internal/model"
)

const defaultTemplateTTL = 10 * time.Minute

// TemplateSource is the authoritative template store.
type TemplateSource interface {
	Get(ctx context.Context, id int64) (*model.EmailTemplate, error)
	GetDefault(ctx context.Context, profileID int64) (*model.EmailTemplate, error)
}

// TemplateCache is a read-through Redis cache in front of a TemplateSource.
// Redis errors never fail a lookup; the source is consulted instead.
type TemplateCache struct {
	rdb    *redis.Client
	src    TemplateSource
	ttl    time.Duration
	logger *zap.Logger
}

func NewTemplateCache(rdb *redis.Client, src TemplateSource, ttl time.Duration, logger *zap.Logger) *TemplateCache {
	if ttl <= 0 {
		ttl = defaultTemplateTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateCache{rdb: rdb, src: src, ttl: ttl, logger: logger}
}

func idKey(id int64) string {
	return fmt.Sprintf("template:id:%d", id)
}

func defaultKey(profileID int64) string {
	return fmt.Sprintf("template:default:%d", profileID)
}

func (c *TemplateCache) Get(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	return c.readThrough(ctx, idKey(id), func() (*model.EmailTemplate, error) {
		return c.src.Get(ctx, id)
	})
}

func (c *TemplateCache) GetDefault(ctx context.Context, profileID int64) (*model.EmailTemplate, error) {
	return c.readThrough(ctx, defaultKey(profileID), func() (*model.EmailTemplate, error) {
		return c.src.GetDefault(ctx, profileID)
	})
}

// Invalidate drops the cached default of profileID and the given template ids.
func (c *TemplateCache) Invalidate(ctx context.Context, profileID int64, templateIDs ...int64) {
	keys := []string{defaultKey(profileID)}
	for _, id := range templateIDs {
		keys = append(keys, idKey(id))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("template cache invalidate failed",
			zap.Int64("profile_id", profileID),
			zap.Error(err),
		)
	}
}

func (c *TemplateCache) readThrough(ctx context.Context, key string, load func() (*model.EmailTemplate, error)) (*model.EmailTemplate, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t model.EmailTemplate
		if jsonErr := json.Unmarshal(raw, &t); jsonErr == nil {
			return &t, nil
		}
		c.logger.Warn("template cache entry corrupt, reloading", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("template cache read failed", zap.String("key", key), zap.Error(err))
	}

	t, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(t); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("template cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return t, nil
}
