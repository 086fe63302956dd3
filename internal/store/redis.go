package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Beat writes key with a TTL; it disappears unless refreshed.
func (r *Redis) Beat(ctx context.Context, key string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// Alive reports whether key is currently set.
func (r *Redis) Alive(ctx context.Context, key string) bool {
	if r == nil || r.Client == nil {
		return false
	}
	n, err := r.Client.Exists(ctx, key).Result()
	return err == nil && n > 0
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
