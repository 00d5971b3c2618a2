package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"rosterboard/internal/identity/models"
)

const redisKey = "rosterboard:directory:v1"

// Redis shares one directory snapshot across processes. Cache failures are
// logged and reported as misses so the pipeline falls back to a live fetch.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Redis) Get(ctx context.Context) ([]models.Identity, bool, error) {
	payload, err := c.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		c.logger.WarnContext(ctx, "directory cache read failed", "error", err)
		return nil, false, nil
	}

	var identities []models.Identity
	if err := json.Unmarshal(payload, &identities); err != nil {
		c.logger.WarnContext(ctx, "directory cache payload corrupt", "error", err)
		return nil, false, nil
	}
	return identities, true, nil
}

func (c *Redis) Set(ctx context.Context, identities []models.Identity) error {
	payload, err := json.Marshal(identities)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, redisKey, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "directory cache write failed", "error", err)
	}
	return nil
}
