package alert

import (
	"context"
	"time"

	platformredis "treehouse/internal/platform/redis"
)

// RedisDebouncer shares the alert window across every instance and kiosk via
// SET NX EX: whichever caller wins the key owns the window.
type RedisDebouncer struct {
	client *platformredis.Client
}

func NewRedis(client *platformredis.Client) *RedisDebouncer {
	return &RedisDebouncer{client: client}
}

func (d *RedisDebouncer) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return d.client.SetNX(ctx, "alert:"+key, time.Now().Unix(), window).Result()
}
