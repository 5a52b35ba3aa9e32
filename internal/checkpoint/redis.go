package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"cleo-screening/internal/session"
)

const checkpointPrefix = "screening:checkpoint:"

// RedisStore keeps one snapshot per thread in Redis with a sliding TTL:
// every load refreshes the expiry so active sessions stay alive.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) key(threadID string) string {
	return checkpointPrefix + threadID
}

// Load reads the snapshot and extends its TTL.
func (r *RedisStore) Load(ctx context.Context, threadID string) (*session.State, error) {
	data, err := r.client.GetEx(ctx, r.key(threadID), r.ttl).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var snap session.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if snap.Version > session.SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrVersionTooNew, snap.Version, session.SnapshotVersion)
	}
	return snap.State, nil
}

// Save writes the snapshot with the configured TTL.
func (r *RedisStore) Save(ctx context.Context, state *session.State) error {
	data, err := sonic.Marshal(session.NewSnapshot(state))
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := r.client.Set(ctx, r.key(state.ThreadID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Delete removes the thread's checkpoint.
func (r *RedisStore) Delete(ctx context.Context, threadID string) error {
	if err := r.client.Del(ctx, r.key(threadID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
