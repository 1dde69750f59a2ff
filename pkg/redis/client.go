package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookhub/backend/config"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNotHeld is returned by Unlock when the key expired or was taken
// over by another holder.
var ErrLockNotHeld = errors.New("redis: lock not held")

// unlockScript deletes the key only while it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Client struct {
	rdb *redis.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddress(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	client := NewFromRedis(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		logger.GetLogger().Error("Failed to connect to Redis",
			zap.String("address", cfg.RedisAddress()),
			zap.Error(err),
		)
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.GetLogger().Info("Successfully connected to Redis",
		zap.String("address", cfg.RedisAddress()),
		zap.Int("database", cfg.Redis.Database),
	)

	return client, nil
}

// NewFromRedis wraps an existing go-redis client.
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// TryLock sets key with SET NX PX. It returns the holder token when the
// lock was acquired and "" when someone else holds it.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logger.GetLogger().Error("Failed to acquire lock",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		logger.GetLogger().Debug("Lock held elsewhere",
			zap.String("key", key),
		)
		return "", nil
	}

	logger.GetLogger().Debug("Lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)
	return token, nil
}

func (c *Client) Unlock(ctx context.Context, key, token string) error {
	deleted, err := unlockScript.Run(ctx, c.rdb, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if deleted == 0 {
		logger.GetLogger().Warn("Lock expired before release",
			zap.String("key", key),
		)
		return ErrLockNotHeld
	}
	return nil
}
