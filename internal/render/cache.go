package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LiveCache 把每种更新的最新值写入 Redis Hash（带 TTL）
// 会话停止后数据随 TTL 过期
type LiveCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewLiveCache(client *redis.Client, key string, ttl time.Duration) *LiveCache {
	return &LiveCache{client: client, key: key, ttl: ttl}
}

func (c *LiveCache) Publish(ctx context.Context, u Update) error {
	b, err := json.Marshal(u.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.key, u.Type, string(b))
	if c.ttl > 0 {
		pipe.Expire(ctx, c.key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write live cache: %w", err)
	}
	return nil
}
