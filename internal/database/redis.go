package database

import (
	"context"
	"fmt"

	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the client shared by the CSRF store, the login rate limiter
// and the event broker, and checks it with a PING.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Log.Info("Redis connected successfully")
	return client, nil
}
