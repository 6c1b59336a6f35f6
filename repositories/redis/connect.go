package redis

import (
	// Go Internal Packages
	"context"

	// External Packages
	"github.com/redis/go-redis/v9"
)

// Connect connects to the redis server and returns the client.
func Connect(ctx context.Context, uri, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
