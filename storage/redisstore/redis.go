package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix    = "authcode:"
	revokedKeyPrefix = "revoked:"
)

// Connect parses a redis:// URL and checks the server answers
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
