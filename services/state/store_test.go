package state

import (
	// Go Internal Packages
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	// Local Packages
	models "bgmock-twin/models"

	// External Packages
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTx(id string, amount int64) models.Transaction {
	tx := models.NewTransaction("000001", "1111111111", "BG-2", decimal.NewFromInt(amount), time.Unix(0, 0))
	tx.TxID = id
	return tx
}

func TestUpdateTransactionStatusSuccessCountsOnce(t *testing.T) {
	s := NewStore(zap.NewNop())
	require.True(t, s.RecordTransaction(newTestTx("tx1", 250)))

	require.True(t, s.UpdateTransactionStatus("tx1", models.StatusSuccess, "ok"))
	s.UpdateTransactionStatus("tx1", models.StatusSuccess, "ok again")

	stats := s.Statistics()
	assert.Equal(t, int64(1), stats.TotalTransactions)
	assert.Equal(t, int64(0), stats.PendingTransactions)
	assert.Equal(t, int64(1), stats.SuccessfulTransactions)
	assert.True(t, decimal.NewFromInt(250).Equal(stats.TotalAmountTransferred))

	resp, ok := s.Response("tx1")
	require.True(t, ok)
	assert.Equal(t, "ok again", resp.Message)
}

func TestUpdateTransactionStatusFailed(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.RecordTransaction(newTestTx("tx1", 100))

	s.UpdateTransactionStatus("tx1", models.StatusFailed, "declined")

	stats := s.Statistics()
	assert.Equal(t, int64(0), stats.PendingTransactions)
	assert.Equal(t, int64(1), stats.FailedTransactions)
	assert.Equal(t, int64(0), stats.SuccessfulTransactions)
	assert.True(t, stats.TotalAmountTransferred.IsZero())

	resp, ok := s.Response("tx1")
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, resp.Status)
	assert.Equal(t, "declined", resp.Message)
}

func TestTerminalStatusDoesNotTransitionAgain(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.RecordTransaction(newTestTx("tx1", 100))
	s.UpdateTransactionStatus("tx1", models.StatusFailed, "declined")

	assert.False(t, s.UpdateTransactionStatus("tx1", models.StatusSuccess, "late"))

	stats := s.Statistics()
	assert.Equal(t, int64(1), stats.FailedTransactions)
	assert.Equal(t, int64(0), stats.SuccessfulTransactions)
	assert.True(t, stats.TotalAmountTransferred.IsZero())
	tx, _ := s.Transaction("tx1")
	assert.Equal(t, models.StatusFailed, tx.Status)
}

func TestUpdateUnknownTransactionIsNoop(t *testing.T) {
	s := NewStore(zap.NewNop())
	assert.False(t, s.UpdateTransactionStatus("missing", models.StatusSuccess, ""))
	_, ok := s.Response("missing")
	assert.False(t, ok)
	assert.Equal(t, models.Statistics{TotalAmountTransferred: decimal.Zero}, s.Statistics())
}

func TestRecordTransactionDuplicateIgnored(t *testing.T) {
	s := NewStore(zap.NewNop())
	assert.True(t, s.RecordTransaction(newTestTx("tx1", 100)))
	assert.False(t, s.RecordTransaction(newTestTx("tx1", 900)))

	stats := s.Statistics()
	assert.Equal(t, int64(1), stats.TotalTransactions)
	assert.Equal(t, int64(1), stats.PendingTransactions)
	tx, _ := s.Transaction("tx1")
	assert.True(t, decimal.NewFromInt(100).Equal(tx.Amount))
}

func TestKafkaEventRingKeepsMostRecent(t *testing.T) {
	s := NewStore(zap.NewNop())
	n := KafkaEventCapacity + 37
	for i := 0; i < n; i++ {
		s.AppendKafkaEvent("transactions.initiated", models.Received, map[string]any{"i": i})
	}

	events := s.KafkaEvents(n)
	require.Len(t, events, KafkaEventCapacity)
	assert.Equal(t, 37, events[0].Data["i"])
	assert.Equal(t, n-1, events[len(events)-1].Data["i"])
	assert.Equal(t, int64(n), s.Statistics().KafkaMessagesReceived)

	tail := s.KafkaEvents(3)
	require.Len(t, tail, 3)
	assert.Equal(t, n-3, tail[0].Data["i"])
}

func TestKafkaEventDirectionCounters(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.AppendKafkaEvent("transactions.initiated", models.Sent, nil)
	s.AppendKafkaEvent("transactions.completed", models.Received, nil)
	s.AppendKafkaEvent("transactions.completed", models.Received, nil)

	stats := s.Statistics()
	assert.Equal(t, int64(1), stats.KafkaMessagesSent)
	assert.Equal(t, int64(2), stats.KafkaMessagesReceived)
}

func TestRestCallRing(t *testing.T) {
	s := NewStore(zap.NewNop())
	for i := 0; i < RestCallCapacity+5; i++ {
		s.AppendRestCall("POST", fmt.Sprintf("/api/transactions/%d", i), 200, 10*time.Millisecond)
	}
	calls := s.RestCalls(0)
	require.Len(t, calls, RestCallCapacity)
	assert.Equal(t, "/api/transactions/5", calls[0].Endpoint)
	assert.InDelta(t, 0.01, calls[0].ResponseTime, 1e-9)
	assert.Equal(t, int64(RestCallCapacity+5), s.Statistics().RestCallsMade)
}

func TestAccountsUpsertReplaces(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.UpsertAccount(models.Account{AccountID: "a1", AccountHolder: "Alice", Balance: decimal.NewFromInt(10)})
	s.UpsertAccount(models.Account{AccountID: "a1", AccountNumber: "1111", Balance: decimal.NewFromInt(20)})

	account, ok := s.GetAccount("a1")
	require.True(t, ok)
	assert.Empty(t, account.AccountHolder)
	assert.Equal(t, "1111", account.AccountNumber)
	assert.Len(t, s.ListAccounts(), 1)

	_, ok = s.GetAccount("a2")
	assert.False(t, ok)
}

func TestServiceHealthLastWriteWins(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.SetServiceHealth(HealthBankA, true)
	s.SetServiceHealth(HealthBankA, false)
	s.SetServiceHealth("custom", true)

	health := s.ServiceHealth()
	assert.False(t, health[HealthBankA])
	assert.True(t, health["custom"])
	assert.Contains(t, health, HealthKafka)

	health[HealthKafka] = true
	assert.False(t, s.ServiceHealth()[HealthKafka])
}

func TestSnapshotIsDetached(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(zap.NewNop()).WithClock(func() time.Time { return at })
	s.UpsertAccount(models.Account{AccountID: "a1", Balance: decimal.NewFromInt(5)})
	tx := newTestTx("tx1", 100)
	clearing := "000002"
	tx.ToClearingNumber = &clearing
	s.RecordTransaction(tx)

	snap := s.Snapshot()
	*snap.Transactions["tx1"].ToClearingNumber = "changed"
	snap.ServiceHealth[HealthBankA] = true
	s.UpdateTransactionStatus("tx1", models.StatusSuccess, "")

	again, _ := s.Transaction("tx1")
	assert.Equal(t, "000002", *again.ToClearingNumber)
	assert.Equal(t, models.StatusPending, snap.Transactions["tx1"].Status)
	assert.Equal(t, int64(1), snap.Statistics.PendingTransactions)
	assert.False(t, s.ServiceHealth()[HealthBankA])
}

func TestSnapshotJSONFormat(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(zap.NewNop()).WithClock(func() time.Time { return at })
	s.RecordTransaction(newTestTx("tx1", 100))
	s.UpdateTransactionStatus("tx1", models.StatusSuccess, "")

	raw, err := s.SnapshotJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"timestamp", "accounts", "transactions", "statistics", "service_health"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["timestamp"])

	txs := decoded["transactions"].(map[string]any)
	tx := txs["tx1"].(map[string]any)
	assert.Equal(t, float64(100), tx["amount"])
	assert.Equal(t, "SUCCESS", tx["status"])

	stats := decoded["statistics"].(map[string]any)
	assert.Equal(t, float64(1), stats["successful_transactions"])
}

func TestConcurrentUpdatesCountEachTransitionOnce(t *testing.T) {
	s := NewStore(zap.NewNop())
	const n = 50
	for i := 0; i < n; i++ {
		s.RecordTransaction(newTestTx(fmt.Sprintf("tx%d", i), 10))
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				s.UpdateTransactionStatus(fmt.Sprintf("tx%d", i), models.StatusSuccess, "")
				s.AppendKafkaEvent("transactions.completed", models.Received, nil)
			}
		}()
	}
	wg.Wait()

	stats := s.Statistics()
	assert.Equal(t, int64(n), stats.SuccessfulTransactions)
	assert.Equal(t, int64(0), stats.PendingTransactions)
	assert.True(t, decimal.NewFromInt(10*n).Equal(stats.TotalAmountTransferred))
	assert.Equal(t, int64(4*n), stats.KafkaMessagesReceived)
}
