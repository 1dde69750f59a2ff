package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookhub/backend/config"
	"github.com/redis/go-redis/v9"
)

func unreachable() *Client {
	return NewFromRedis(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{
		Host:        "127.0.0.1",
		Port:        1,
		PoolSize:    1,
		DialTimeout: 100 * time.Millisecond,
	}}

	client, err := NewClient(cfg)
	if err == nil {
		client.Close()
		t.Fatal("Expected connection error")
	}
}

func TestTryLock_TransportError(t *testing.T) {
	c := unreachable()
	defer c.Close()

	token, err := c.TryLock(context.Background(), "bookhub:lock:job:test", time.Second)
	if err == nil {
		t.Fatal("Expected error")
	}
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
}

func TestUnlock_TransportError(t *testing.T) {
	c := unreachable()
	defer c.Close()

	err := c.Unlock(context.Background(), "bookhub:lock:job:test", "token")
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, ErrLockNotHeld) {
		t.Error("transport failure must not read as a lost lock")
	}
}
