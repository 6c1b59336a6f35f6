package redis

import (
	// Go Internal Packages
	"context"
	"time"

	// External Packages
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type SnapshotSource interface {
	SnapshotJSON() ([]byte, error)
}

// SnapshotPublisher exposes the latest state snapshot to read-only dashboards.
// Entries expire after ttl so nothing outlives the harness for long.
type SnapshotPublisher struct {
	client *redis.Client
	logger *zap.Logger
	key    string
	ttl    time.Duration
}

func NewSnapshotPublisher(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *SnapshotPublisher {
	return &SnapshotPublisher{client: client, logger: logger, key: key, ttl: ttl}
}

// Publish writes one snapshot of source under the configured key.
func (r *SnapshotPublisher) Publish(ctx context.Context, source SnapshotSource) error {
	data, err := source.SnapshotJSON()
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, r.ttl).Err()
}

// Run publishes a snapshot every interval until ctx ends.
func (r *SnapshotPublisher) Run(ctx context.Context, source SnapshotSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.Publish(ctx, source); err != nil && ctx.Err() == nil {
			r.logger.Warn("failed to publish snapshot", zap.String("key", r.key), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
