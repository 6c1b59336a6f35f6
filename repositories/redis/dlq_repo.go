package redis

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"time"

	// Local Packages
	models "bgmock-twin/models"

	// External Packages
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type deadLetter struct {
	Topic      string    `json:"topic"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	ReceivedAt time.Time `json:"received_at"`
}

// DeadLetterQueue keeps undecodable stage messages in a capped Redis list.
type DeadLetterQueue struct {
	client   *redis.Client
	logger   *zap.Logger
	listName string
	maxLen   int64
}

func NewDeadLetterQueue(client *redis.Client, listName string, logger *zap.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{client: client, logger: logger, listName: listName, maxLen: 1000}
}

// Send appends all failed records to the list, trimming it to the newest maxLen entries
func (r *DeadLetterQueue) Send(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	values := make([]any, 0, len(records))
	for _, record := range records {
		jsonData, err := json.Marshal(deadLetter{
			Topic:      record.Topic,
			Key:        string(record.Key),
			Value:      string(record.Value),
			ReceivedAt: time.Now().UTC(),
		})
		if err != nil {
			r.logger.Error("failed to marshal record", zap.Error(err))
			continue
		}
		values = append(values, jsonData)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.listName, values...)
	pipe.LTrim(ctx, r.listName, -r.maxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	r.logger.Info("dead-lettered records", zap.String("list", r.listName), zap.Int("count", len(values)))
	return nil
}
