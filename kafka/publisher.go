package kafka

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"sync/atomic"

	// Local Packages
	errors "bgmock-twin/errors"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// Publisher sends JSON messages to the bus. Once the broker is found
// unreachable every publish is a logged no-op.
type Publisher struct {
	client    *kgo.Client
	logger    *zap.Logger
	available atomic.Bool
}

// NewPublisher creates a producer client and pings the brokers. A failed ping
// leaves the publisher in offline mode rather than returning an error.
func NewPublisher(ctx context.Context, brokers []string, metrics *kprom.Metrics, logger *zap.Logger) *Publisher {
	p := &Publisher{logger: logger}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("digital-twin-producer"),
		kgo.AllowAutoTopicCreation(),
	}
	if metrics != nil {
		opts = append(opts, kgo.WithHooks(metrics))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		logger.Warn("kafka not available, running offline", zap.Error(err))
		return p
	}
	p.client = client

	if err := client.Ping(ctx); err != nil {
		logger.Warn("kafka not available, running offline", zap.Error(errors.UnavailableErr("kafka", err)))
		return p
	}
	p.available.Store(true)
	logger.Info("kafka connection established")
	return p
}

func (p *Publisher) Available() bool {
	return p.available.Load()
}

// Publish serializes v and produces it synchronously keyed by key.
// It reports whether the broker acknowledged the record.
func (p *Publisher) Publish(ctx context.Context, topic, key string, v any) bool {
	if !p.available.Load() {
		p.logger.Warn("kafka not available, message not sent", zap.String("topic", topic), zap.String("key", key))
		return false
	}

	value, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal message", zap.String("topic", topic), zap.Error(err))
		return false
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.Error("failed to send message", zap.String("topic", topic), zap.String("key", key), zap.Error(err))
		return false
	}
	p.logger.Info("sent message", zap.String("topic", topic), zap.String("key", key))
	return true
}

func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
