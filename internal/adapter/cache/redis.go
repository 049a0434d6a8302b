package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel invalidated tags are published on.
const DefaultChannel = "agentchat:invalidate"

// Redis invalidates a cache shared through Redis: the entry stored under
// prefix+tag is deleted and the tag is published so other readers can drop
// their local copies.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	channel string
}

// NewRedis creates a Redis invalidator. An empty channel selects DefaultChannel.
func NewRedis(client redis.UniversalClient, prefix, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, prefix: prefix, channel: channel}
}

// Invalidate implements Invalidator.
func (r *Redis) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = r.prefix + tag
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, keys...)
	for _, tag := range tags {
		pipe.Publish(ctx, r.channel, tag)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate %v: %w", tags, err)
	}
	return nil
}
