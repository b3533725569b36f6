// Package backlog queues notifications for users with no live real-time
// connection. On the next connect the backlog is drained and delivered as
// one queued_notifications frame, oldest first.
package backlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// DefaultCap bounds the per-user backlog; the oldest entries are trimmed.
const DefaultCap = 100

// backlogTTL expires abandoned backlogs.
const backlogTTL = 7 * 24 * time.Hour

// Queue stores and drains per-user offline notifications.
type Queue interface {
	Push(ctx context.Context, userID string, n wire.Notification) error
	// Drain removes and returns the user's backlog, oldest first.
	Drain(ctx context.Context, userID string) ([]wire.Notification, error)
	Len(ctx context.Context, userID string) (int, error)
}

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Cap      int
}

// RedisQueue is a Redis-backed Queue using one list per user.
type RedisQueue struct {
	rdb    *redis.Client
	cap    int
	logger *zap.Logger
}

// NewRedisQueue creates a Redis-backed queue and verifies connectivity.
func NewRedisQueue(ctx context.Context, cfg Config, logger *zap.Logger) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis backlog connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	cap := cfg.Cap
	if cap <= 0 {
		cap = DefaultCap
	}
	return &RedisQueue{rdb: rdb, cap: cap, logger: logger}, nil
}

// NewRedisQueueFromClient wraps an existing client; used by tests.
func NewRedisQueueFromClient(rdb *redis.Client, cap int, logger *zap.Logger) *RedisQueue {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &RedisQueue{rdb: rdb, cap: cap, logger: logger}
}

func backlogKey(userID string) string {
	return "backlog:" + userID
}

// Push appends a notification to the user's backlog and trims it to the
// most recent cap entries.
func (q *RedisQueue) Push(ctx context.Context, userID string, n wire.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	key := backlogKey(userID)
	pipe := q.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-q.cap), -1)
	pipe.Expire(ctx, key, backlogTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push failed: %w", err)
	}
	return nil
}

// Drain removes and returns the backlog, oldest first.
func (q *RedisQueue) Drain(ctx context.Context, userID string) ([]wire.Notification, error) {
	key := backlogKey(userID)

	pipe := q.rdb.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis drain failed: %w", err)
	}

	raw := rangeCmd.Val()
	out := make([]wire.Notification, 0, len(raw))
	for _, item := range raw {
		var n wire.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			q.logger.Warn("skipping corrupt backlog entry",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Len returns the current backlog length.
func (q *RedisQueue) Len(ctx context.Context, userID string) (int, error) {
	n, err := q.rdb.LLen(ctx, backlogKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen failed: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying connection.
func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
