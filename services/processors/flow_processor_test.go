package processors

import (
	// Go Internal Packages
	"context"
	"testing"
	"time"

	// Local Packages
	config "bgmock-twin/config"
	models "bgmock-twin/models"
	state "bgmock-twin/services/state"

	// External Packages
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTopics = config.Topics{
	Initiated: "transactions.initiated",
	Forwarded: "transactions.forwarded",
	Processed: "transactions.processed",
	Completed: "transactions.completed",
}

type recordingDLQ struct {
	records []models.Record
}

func (d *recordingDLQ) Send(_ context.Context, records []models.Record) error {
	d.records = append(d.records, records...)
	return nil
}

func newTestProcessor() (*FlowProcessor, *state.Store, *recordingDLQ) {
	store := state.NewStore(zap.NewNop())
	dlq := &recordingDLQ{}
	return NewFlowProcessor(zap.NewNop(), store, testTopics, dlq), store, dlq
}

func record(topic, value string) models.Record {
	return models.Record{Topic: topic, Key: []byte("k"), Value: []byte(value)}
}

func pendingTx(id string, amount int64) models.Transaction {
	tx := models.NewTransaction("000001", "1111111111", "BG2", decimal.NewFromInt(amount), time.Now())
	tx.TxID = id
	return tx
}

func TestCompletedStageAppliesTerminalStatus(t *testing.T) {
	p, store, _ := newTestProcessor()
	store.RecordTransaction(pendingTx("tx1", 100))

	err := p.ProcessRecords(context.Background(), []models.Record{
		record(testTopics.Initiated, `{"transactionId":"tx1","amount":100}`),
		record(testTopics.Completed, `{"transactionId":"tx1","status":"SUCCESS"}`),
	})
	require.NoError(t, err)

	stats := store.Statistics()
	assert.Equal(t, int64(1), stats.SuccessfulTransactions)
	assert.Equal(t, int64(2), stats.KafkaMessagesReceived)
	assert.True(t, decimal.NewFromInt(100).Equal(stats.TotalAmountTransferred))

	resp, ok := store.Response("tx1")
	require.True(t, ok)
	assert.Equal(t, defaultCompletedMessage, resp.Message)

	events := store.KafkaEvents(0)
	require.Len(t, events, 2)
	assert.Equal(t, models.Received, events[0].Type)
}

func TestCompletedStageWithoutEarlierStages(t *testing.T) {
	p, store, _ := newTestProcessor()
	store.RecordTransaction(pendingTx("tx1", 100))

	require.NoError(t, p.ProcessRecord(record(testTopics.Completed, `{"transactionId":"tx1","status":"FAILED","message":"declined"}`)))
	require.NoError(t, p.ProcessRecord(record(testTopics.Forwarded, `{"transactionId":"tx1"}`)))

	tx, _ := store.Transaction("tx1")
	assert.Equal(t, models.StatusFailed, tx.Status)
	resp, _ := store.Response("tx1")
	assert.Equal(t, "declined", resp.Message)
}

func TestNonCompletedStagesDoNotUpdateStatus(t *testing.T) {
	p, store, _ := newTestProcessor()
	store.RecordTransaction(pendingTx("tx1", 100))

	require.NoError(t, p.ProcessRecord(record(testTopics.Processed, `{"transactionId":"tx1","status":"SUCCESS"}`)))

	tx, _ := store.Transaction("tx1")
	assert.Equal(t, models.StatusPending, tx.Status)
}

func TestUnknownStatusAndUnknownIDAreAbsorbed(t *testing.T) {
	p, store, dlq := newTestProcessor()
	store.RecordTransaction(pendingTx("tx1", 100))

	require.NoError(t, p.ProcessRecords(context.Background(), []models.Record{
		record(testTopics.Completed, `{"transactionId":"tx1","status":"REVERSED"}`),
		record(testTopics.Completed, `{"transactionId":"ghost","status":"SUCCESS"}`),
	}))

	assert.Equal(t, int64(1), store.Statistics().PendingTransactions)
	assert.Equal(t, int64(2), store.Statistics().KafkaMessagesReceived)
	assert.Empty(t, dlq.records)
}

func TestMalformedMessagesAreDeadLettered(t *testing.T) {
	p, store, dlq := newTestProcessor()

	require.NoError(t, p.ProcessRecords(context.Background(), []models.Record{
		record(testTopics.Initiated, `{not json`),
		record(testTopics.Initiated, `{"amount":5}`),
		record(testTopics.Initiated, `{"transactionId":"tx9"}`),
	}))

	require.Len(t, dlq.records, 2)
	assert.Equal(t, int64(1), store.Statistics().KafkaMessagesReceived)
}
