package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect opens the Redis client that carries match lifecycle events to the
// relay layer. The connection is verified up front so a bad REDIS_URL fails
// at startup, not at the first publish.
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
