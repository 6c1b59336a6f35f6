package kafka

import (
	// Go Internal Packages
	"context"
	"errors"
	"sync/atomic"
	"time"

	// Local Packages
	models "bgmock-twin/models"

	// External Packages
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

const defaultPollTimeout = time.Second

type ConsumerConfig struct {
	Brokers        []string
	Group          string
	Topic          string
	RecordsPerPoll int
	PollTimeout    time.Duration
}

type Processor interface {
	ProcessRecords(ctx context.Context, records []models.Record) error
}

// Consumer polls a single stage topic and hands every batch to its processor.
type Consumer struct {
	Client    *kgo.Client
	Config    *ConsumerConfig
	Processor Processor
	Logger    *zap.Logger

	stopped atomic.Bool
}

// NewConsumer creates a consumer for one topic (PS: Must call Poll to start consuming the records)
func NewConsumer(conf *ConsumerConfig, processor Processor, metrics *kprom.Metrics, logger *zap.Logger) (*Consumer, error) {
	if conf.PollTimeout <= 0 {
		conf.PollTimeout = defaultPollTimeout
	}
	c := &Consumer{Config: conf, Processor: processor, Logger: logger.With(zap.String("topic", conf.Topic))}

	opts := []kgo.Opt{
		kgo.SeedBrokers(conf.Brokers...),                  // Connects to Kafka brokers
		kgo.ConsumerGroup(conf.Group),                     // Specifies the consumer group
		kgo.ConsumeTopics(conf.Topic),                     // Specifies a single topic to consume
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()), // Starts new groups from the earliest offset
		kgo.DisableAutoCommit(),                           // Disables auto-commit
		kgo.BlockRebalanceOnPoll(),                        // Blocks rebalancing until the poll loop is running
	}
	if metrics != nil {
		opts = append(opts, kgo.WithHooks(metrics)) // Attaches monitoring hooks
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	c.Client = client
	return c, nil
}

// Stop asks the poll loop to exit after the current iteration.
func (c *Consumer) Stop() {
	c.stopped.Store(true)
}

// Poll polls for records until ctx ends or Stop is called. Each poll waits at
// most PollTimeout so the stop flag is observed promptly.
func (c *Consumer) Poll(ctx context.Context) error {
	defer c.Client.Close()

	for {
		if c.stopped.Load() {
			c.Logger.Info("polling stopped: unsubscribed")
			return nil
		}
		if ctx.Err() != nil {
			c.Logger.Warn("polling stopped: context canceled")
			return ctx.Err()
		}

		pollCtx, cancel := context.WithTimeout(ctx, c.Config.PollTimeout)
		fetches := c.Client.PollRecords(pollCtx, c.Config.RecordsPerPoll)
		cancel()

		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			c.Logger.Error("fetch error", zap.String("fetch_topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		if fetches.NumRecords() == 0 {
			c.Client.AllowRebalance()
			continue
		}

		records := make([]models.Record, 0, fetches.NumRecords())
		fetches.EachRecord(func(record *kgo.Record) {
			records = append(records, models.Record{
				Key:   record.Key,
				Value: record.Value,
				Topic: record.Topic,
			})
		})

		// A processor failure must not stop the loop
		if err := c.Processor.ProcessRecords(ctx, records); err != nil {
			c.Logger.Error("failed to process records", zap.Error(err))
		}

		if err := c.Client.CommitUncommittedOffsets(ctx); err != nil {
			c.Logger.Warn("failed to commit offsets", zap.Error(err))
		}
		c.Client.AllowRebalance()
	}
}
