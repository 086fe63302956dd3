package syncer

import (
	"context"
	"time"

	"gatelog/internal/store"
)

// DefaultPresenceKey marks a worker that reached the remote store recently.
const DefaultPresenceKey = "gatelog:sync:online"

// Presence shares the worker's connectivity with API processes through a
// redis key that expires unless refreshed.
type Presence struct {
	redis *store.Redis
	key   string
	ttl   time.Duration
}

// NewPresence creates a presence marker.
func NewPresence(r *store.Redis, key string, ttl time.Duration) *Presence {
	if key == "" {
		key = DefaultPresenceKey
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Presence{redis: r, key: key, ttl: ttl}
}

// Beat refreshes the marker.
func (p *Presence) Beat(ctx context.Context) error {
	return p.redis.Beat(ctx, p.key, p.ttl)
}

// Online reports whether a worker beat within the TTL.
func (p *Presence) Online(ctx context.Context) bool {
	return p.redis.Alive(ctx, p.key)
}
