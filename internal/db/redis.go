package db

import (
	"context"
	"time"

	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings. Used for rate limiting and login throttling.
func NewRedisClient(c config.RedisConfig) (*redis.Client, error) {
	dial := c.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: dial,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dial)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
