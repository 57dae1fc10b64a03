// ==============================================================================
// REDIS CONNECTION - pkg/cache/redis.go
// ==============================================================================
package cache

import (
	"context"
	"time"

	"paydash/pkg/config"
	"paydash/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Connect opens a Redis client and verifies it with a ping. It returns nil
// without error when Redis is not configured.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}

	return client, nil
}
