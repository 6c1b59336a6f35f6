package processors

import (
	// Go Internal Packages
	"bytes"
	"context"
	"encoding/json"

	// Local Packages
	config "bgmock-twin/config"
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"

	// External Packages
	"go.uber.org/zap"
)

const defaultCompletedMessage = "Transaction completed"

type StateRecorder interface {
	AppendKafkaEvent(topic string, direction models.Direction, payload map[string]any)
	UpdateTransactionStatus(id string, status models.TransactionStatus, message string) bool
}

// DeadLetterSink receives records that could not be decoded.
type DeadLetterSink interface {
	Send(ctx context.Context, records []models.Record) error
}

// FlowProcessor feeds the four transaction stage topics into the state store.
type FlowProcessor struct {
	Logger *zap.Logger
	Store  StateRecorder
	DLQ    DeadLetterSink
	stages map[string]string
	topics config.Topics
}

func NewFlowProcessor(logger *zap.Logger, store StateRecorder, topics config.Topics, dlq DeadLetterSink) *FlowProcessor {
	return &FlowProcessor{
		Logger: logger,
		Store:  store,
		DLQ:    dlq,
		topics: topics,
		stages: map[string]string{
			topics.Initiated: "INITIATED",
			topics.Forwarded: "FORWARDED",
			topics.Processed: "PROCESSED",
			topics.Completed: "COMPLETED",
		},
	}
}

// ProcessRecords records every decodable message and applies terminal updates
// from the completed topic. Malformed messages are dropped after being handed
// to the dead letter sink.
func (p *FlowProcessor) ProcessRecords(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	var malformed []models.Record
	for _, record := range records {
		if err := p.ProcessRecord(record); err != nil {
			p.Logger.Error("dropping stage message",
				zap.String("topic", record.Topic), zap.ByteString("key", record.Key), zap.Error(err))
			malformed = append(malformed, record)
		}
	}

	if len(malformed) > 0 && p.DLQ != nil {
		if err := p.DLQ.Send(ctx, malformed); err != nil {
			p.Logger.Warn("failed to dead-letter malformed messages", zap.Int("count", len(malformed)), zap.Error(err))
		}
	}
	return nil
}

// ProcessRecord handles one stage message. Only decoding problems are
// returned; unknown ids and statuses are logged.
func (p *FlowProcessor) ProcessRecord(record models.Record) error {
	var event models.StageEvent
	if err := json.Unmarshal(record.Value, &event); err != nil {
		return errors.MalformedErr(record.Topic, err)
	}
	if event.TxID == "" {
		return errors.MalformedErr(record.Topic, errors.EmptyParamErr("transactionId"))
	}

	payload := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(record.Value))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return errors.MalformedErr(record.Topic, err)
	}

	stage := p.stages[record.Topic]
	p.Logger.Info("observed transaction stage",
		zap.String("stage", stage),
		zap.String("transaction_id", event.TxID),
		zap.String("status", event.Status))
	p.Store.AppendKafkaEvent(record.Topic, models.Received, payload)

	if record.Topic != p.topics.Completed {
		return nil
	}

	status, ok := models.ParseStatus(event.Status)
	if !ok {
		p.Logger.Warn("unknown transaction status", zap.String("transaction_id", event.TxID), zap.String("status", event.Status))
		return nil
	}
	message := event.Message
	if message == "" {
		message = defaultCompletedMessage
	}
	p.Store.UpdateTransactionStatus(event.TxID, status, message)
	return nil
}
