package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func pendingKey(userID, courseID int64) string {
	return fmt.Sprintf("purchase:pending:%d:%d", userID, courseID)
}

// SetPendingPurchase stores a pending-purchase marker so an interrupted
// checkout flow can be resumed without hitting the database. The store stays
// authoritative; the marker just expires.
func (c *Client) SetPendingPurchase(ctx context.Context, userID, courseID int64, paymentID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, pendingKey(userID, courseID), paymentID, ttl).Err()
}

// GetPendingPurchase returns the cached payment id for a pending purchase,
// or "" when no marker exists.
func (c *Client) GetPendingPurchase(ctx context.Context, userID, courseID int64) (string, error) {
	paymentID, err := c.rdb.Get(ctx, pendingKey(userID, courseID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return paymentID, nil
}

// ClearPendingPurchase removes the marker once the purchase reaches a
// terminal status.
func (c *Client) ClearPendingPurchase(ctx context.Context, userID, courseID int64) error {
	return c.rdb.Del(ctx, pendingKey(userID, courseID)).Err()
}

// AcquireLock acquires a best-effort lock keyed by lockKey; token must be
// passed back to ReleaseLock.
func (c *Client) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
}

// ReleaseLock releases a lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Err()
}
