package state

import (
	// Go Internal Packages
	"encoding/json"
	"sync"
	"time"

	// Local Packages
	models "bgmock-twin/models"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	KafkaEventCapacity = 100
	RestCallCapacity   = 50
)

// Health keys reported by the orchestrator.
const (
	HealthBankA    = "bank_a"
	HealthBankB    = "bank_b"
	HealthClearing = "clearing_service"
	HealthKafka    = "kafka"
)

// Store is the in-memory mirror of accounts, transactions and observed traffic.
// A single mutex guards every field, so all operations are totally ordered.
// Exported methods take the lock; unexported helpers assume it is held.
type Store struct {
	mu sync.Mutex

	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	responses    map[string]models.TransactionResponse

	kafkaEvents *ring[models.KafkaEvent]
	restCalls   *ring[models.RestCall]

	stats  models.Statistics
	health map[string]bool

	now    func() time.Time
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		responses:    make(map[string]models.TransactionResponse),
		kafkaEvents:  newRing[models.KafkaEvent](KafkaEventCapacity),
		restCalls:    newRing[models.RestCall](RestCallCapacity),
		stats:        models.Statistics{TotalAmountTransferred: decimal.Zero},
		health: map[string]bool{
			HealthBankA:    false,
			HealthBankB:    false,
			HealthClearing: false,
			HealthKafka:    false,
		},
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the clock used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// UpsertAccount replaces the account stored under its id.
func (s *Store) UpsertAccount(account models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.AccountID] = account
}

func (s *Store) GetAccount(id string) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	return account, ok
}

// ListAccounts returns a copy of every account in no particular order.
func (s *Store) ListAccounts() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	return accounts
}

// RecordTransaction inserts tx and counts it as pending. Ids already present
// are ignored and reported as false.
func (s *Store) RecordTransaction(tx models.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.TxID]; exists {
		s.logger.Warn("transaction already recorded", zap.String("transaction_id", tx.TxID))
		return false
	}
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	s.transactions[tx.TxID] = tx
	s.stats.TotalTransactions++
	s.stats.PendingTransactions++
	return true
}

func (s *Store) Transaction(id string) (models.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	return tx, ok
}

func (s *Store) Response(id string) (models.TransactionResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.responses[id]
	return resp, ok
}

// UpdateTransactionStatus applies a terminal update observed upstream.
// Unknown ids are logged and ignored. Counters only move on a transition out
// of PENDING, so re-applying an update never double counts. The response
// record is always rewritten with the latest message.
func (s *Store) UpdateTransactionStatus(id string, status models.TransactionStatus, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		s.logger.Warn("status update for unknown transaction",
			zap.String("transaction_id", id), zap.String("status", string(status)))
		return false
	}

	prior := tx.Status
	switch {
	case prior == status:
		if !status.IsTerminal() {
			return false
		}
	case prior == models.StatusPending && status.IsTerminal():
		tx.Status = status
		tx.UpdatedAt = models.NewTimestamp(s.now())
		s.transactions[id] = tx
		s.applyTransitionLocked(tx)
	default:
		s.logger.Warn("ignoring status transition",
			zap.String("transaction_id", id),
			zap.String("from", string(prior)),
			zap.String("to", string(status)))
		return false
	}

	s.responses[id] = models.TransactionResponse{TxID: id, Status: status, Message: message}
	return true
}

func (s *Store) applyTransitionLocked(tx models.Transaction) {
	s.stats.PendingTransactions--
	switch tx.Status {
	case models.StatusSuccess:
		s.stats.SuccessfulTransactions++
		s.stats.TotalAmountTransferred = s.stats.TotalAmountTransferred.Add(tx.Amount)
	case models.StatusFailed:
		s.stats.FailedTransactions++
	}
}

// AppendKafkaEvent pushes a bus event onto the bounded history and counts it
// as sent or received according to direction.
func (s *Store) AppendKafkaEvent(topic string, direction models.Direction, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kafkaEvents.push(models.KafkaEvent{
		Timestamp: models.NewTimestamp(s.now()),
		Topic:     topic,
		Type:      direction,
		Data:      payload,
	})
	if direction == models.Sent {
		s.stats.KafkaMessagesSent++
	} else {
		s.stats.KafkaMessagesReceived++
	}
}

func (s *Store) AppendRestCall(method, endpoint string, statusCode int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restCalls.push(models.RestCall{
		Timestamp:    models.NewTimestamp(s.now()),
		Method:       method,
		Endpoint:     endpoint,
		StatusCode:   statusCode,
		ResponseTime: latency.Seconds(),
	})
	s.stats.RestCallsMade++
}

// KafkaEvents returns the most recent limit events, oldest first.
func (s *Store) KafkaEvents(limit int) []models.KafkaEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kafkaEvents.last(limit)
}

// RestCalls returns the most recent limit calls, oldest first.
func (s *Store) RestCalls(limit int) []models.RestCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restCalls.last(limit)
}

func (s *Store) Statistics() models.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SetServiceHealth records the latest health observation for name.
func (s *Store) SetServiceHealth(name string, healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[name] = healthy
}

func (s *Store) ServiceHealth() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyHealthLocked(s.health)
}

func copyHealthLocked(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Snapshot copies accounts, transactions, statistics and health under one
// lock acquisition.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[string]models.Account, len(s.accounts))
	for id, account := range s.accounts {
		accounts[id] = cloneAccount(account)
	}
	transactions := make(map[string]models.Transaction, len(s.transactions))
	for id, tx := range s.transactions {
		transactions[id] = cloneTransaction(tx)
	}

	return models.Snapshot{
		Timestamp:     models.NewTimestamp(s.now()),
		Accounts:      accounts,
		Transactions:  transactions,
		Statistics:    s.stats,
		ServiceHealth: copyHealthLocked(s.health),
	}
}

// SnapshotJSON serializes Snapshot in the export format.
func (s *Store) SnapshotJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func cloneAccount(a models.Account) models.Account {
	if a.Version != nil {
		v := *a.Version
		a.Version = &v
	}
	return a
}

func cloneTransaction(tx models.Transaction) models.Transaction {
	tx.FromAccountID = cloneString(tx.FromAccountID)
	tx.ToClearingNumber = cloneString(tx.ToClearingNumber)
	tx.ToAccountNumber = cloneString(tx.ToAccountNumber)
	return tx
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
