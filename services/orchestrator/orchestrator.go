package orchestrator

import (
	// Go Internal Packages
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	// Local Packages
	clients "bgmock-twin/clients"
	config "bgmock-twin/config"
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"
	state "bgmock-twin/services/state"
	utils "bgmock-twin/utils"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultHealthInterval = 10 * time.Second

// Publisher sends messages to the event bus.
type Publisher interface {
	Available() bool
	Publish(ctx context.Context, topic, key string, v any) bool
}

// Subscription is a running topic consumer.
type Subscription interface {
	Poll(ctx context.Context) error
	Stop()
}

// TestAccounts are seeded on start-up, the first two in bank A and the rest in bank B.
var TestAccounts = []models.Account{
	{AccountNumber: "1111111111", AccountHolder: "Alice Anderson", Balance: decimal.RequireFromString("10000.00")},
	{AccountNumber: "2222222222", AccountHolder: "Bob Brown", Balance: decimal.RequireFromString("5000.00")},
	{AccountNumber: "3333333333", AccountHolder: "Charlie Chen", Balance: decimal.RequireFromString("7500.00")},
	{AccountNumber: "4444444444", AccountHolder: "Diana Davis", Balance: decimal.RequireFromString("3000.00")},
}

// Orchestrator drives traffic into the bank network and keeps the state
// store in sync with what it observes.
type Orchestrator struct {
	Logger    *zap.Logger
	Store     *state.Store
	BankA     *clients.BankClient
	BankB     *clients.BankClient
	Clearing  *clients.ClearingClient
	Publisher Publisher
	Topics    config.Topics

	healthInterval time.Duration
	sleep          utils.SleepFunc
	now            func() time.Time

	mu            sync.Mutex
	rng           *rand.Rand
	subscriptions []Subscription
	wg            sync.WaitGroup
}

type Option func(*Orchestrator)

func WithHealthInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.healthInterval = d
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(o *Orchestrator) { o.rng = rng }
}

func WithSleep(sleep utils.SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(logger *zap.Logger, store *state.Store, bankA, bankB *clients.BankClient,
	clearing *clients.ClearingClient, publisher Publisher, topics config.Topics, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Logger:         logger,
		Store:          store,
		BankA:          bankA,
		BankB:          bankB,
		Clearing:       clearing,
		Publisher:      publisher,
		Topics:         topics,
		healthInterval: DefaultHealthInterval,
		sleep:          utils.Sleep,
		now:            time.Now,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start reports bus availability, seeds the test accounts, starts one poll
// loop per subscription and the background health loop. Everything stops
// when ctx ends or Unsubscribe is called.
func (o *Orchestrator) Start(ctx context.Context, subscriptions ...Subscription) {
	o.Store.SetServiceHealth(state.HealthKafka, o.busAvailable())

	if o.busAvailable() {
		o.Subscribe(ctx, subscriptions...)
	} else if len(subscriptions) > 0 {
		o.Logger.Warn("kafka not available, skipping topic subscriptions")
	}

	o.SeedAccounts(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runHealth(ctx)
	}()
}

// Subscribe starts polling every subscription in its own goroutine.
func (o *Orchestrator) Subscribe(ctx context.Context, subscriptions ...Subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, sub := range subscriptions {
		o.subscriptions = append(o.subscriptions, sub)
		o.wg.Add(1)
		go func(sub Subscription) {
			defer o.wg.Done()
			if err := sub.Poll(ctx); err != nil && ctx.Err() == nil {
				o.Logger.Error("subscription stopped", zap.Error(err))
			}
		}(sub)
	}
}

// Unsubscribe stops every running subscription.
func (o *Orchestrator) Unsubscribe() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, sub := range o.subscriptions {
		sub.Stop()
	}
	o.subscriptions = nil
}

// Wait blocks until the poll and health loops have returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// SeedAccounts creates the test accounts and mirrors the created ones into
// the store. Creation failures are logged and skipped.
func (o *Orchestrator) SeedAccounts(ctx context.Context) int {
	seeded := 0
	for i, account := range TestAccounts {
		bank := o.BankA
		if i >= 2 {
			bank = o.BankB
		}
		created, err := bank.CreateAccount(ctx, account)
		if err != nil {
			o.Logger.Warn("failed to create test account",
				zap.String("bank", bank.Name), zap.String("account_number", account.AccountNumber), zap.Error(err))
			continue
		}
		if created.AccountID == "" {
			created.AccountID = created.AccountNumber
		}
		if created.AccountNumber == "" {
			created.AccountNumber = account.AccountNumber
			created.AccountID = account.AccountNumber
		}
		o.Store.UpsertAccount(created)
		o.Logger.Info("created test account", zap.String("bank", bank.Name), zap.String("account_number", created.AccountNumber))
		seeded++
	}
	return seeded
}

// CheckHealth probes every collaborator once and records the results.
func (o *Orchestrator) CheckHealth(ctx context.Context) map[string]bool {
	o.Store.SetServiceHealth(state.HealthBankA, o.BankA.Health(ctx))
	o.Store.SetServiceHealth(state.HealthBankB, o.BankB.Health(ctx))
	o.Store.SetServiceHealth(state.HealthClearing, o.Clearing.Health(ctx))
	o.Store.SetServiceHealth(state.HealthKafka, o.busAvailable())
	return o.Store.ServiceHealth()
}

func (o *Orchestrator) runHealth(ctx context.Context) {
	ticker := time.NewTicker(o.healthInterval)
	defer ticker.Stop()

	for {
		o.CheckHealth(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) busAvailable() bool {
	return o.Publisher != nil && o.Publisher.Available()
}

// CreateTransaction records a new pending transaction from bank A and sends it
// either through the bank's REST API or straight onto the initiated topic.
func (o *Orchestrator) CreateTransaction(ctx context.Context, fromAccount, toBankgood string, amount decimal.Decimal, useREST bool) (models.Transaction, error) {
	if fromAccount == "" {
		return models.Transaction{}, errors.EmptyParamErr("fromAccount")
	}
	if toBankgood == "" {
		return models.Transaction{}, errors.EmptyParamErr("toBankgood")
	}
	if !amount.IsPositive() {
		return models.Transaction{}, errors.E(errors.Invalid, "amount must be positive", nil)
	}

	tx := models.NewTransaction(o.BankA.ClearingNumber, fromAccount, toBankgood, amount, o.now())
	o.Store.RecordTransaction(tx)

	if useREST {
		created, err := o.BankA.CreateTransaction(ctx, tx)
		if err != nil {
			o.Logger.Warn("failed to create transaction via REST", zap.String("transaction_id", tx.TxID), zap.Error(err))
			return tx, err
		}
		if created.Status != "" {
			tx.Status = created.Status
		}
		o.Logger.Info("transaction created via REST", zap.String("transaction_id", tx.TxID))
		return tx, nil
	}

	if !o.busAvailable() {
		o.Logger.Warn("kafka not available, cannot send transaction", zap.String("transaction_id", tx.TxID))
		return tx, errors.UnavailableErr("kafka", nil)
	}
	if !o.Publisher.Publish(ctx, o.Topics.Initiated, tx.TxID, tx) {
		return tx, errors.UnavailableErr("kafka", errors.E(errors.Other, "publish not acknowledged", nil))
	}

	payload, err := toPayload(tx)
	if err != nil {
		return tx, errors.E(errors.Internal, "encoding sent event", err)
	}
	o.Store.AppendKafkaEvent(o.Topics.Initiated, models.Sent, payload)
	o.Logger.Info("transaction sent via kafka", zap.String("transaction_id", tx.TxID))
	return tx, nil
}

// SimulateRandomTransaction picks two distinct known accounts and sends a
// random amount between them over a randomly chosen path.
func (o *Orchestrator) SimulateRandomTransaction(ctx context.Context) (models.Transaction, error) {
	accounts := o.Store.ListAccounts()
	if len(accounts) < 2 {
		o.Logger.Warn("not enough accounts for simulation", zap.Int("accounts", len(accounts)))
		return models.Transaction{}, errors.E(errors.Invalid, "at least two accounts are required", nil)
	}

	o.mu.Lock()
	fromIdx := o.rng.Intn(len(accounts))
	toIdx := o.rng.Intn(len(accounts) - 1)
	if toIdx >= fromIdx {
		toIdx++
	}
	amount := decimal.NewFromInt(int64(10 + o.rng.Intn(491)))
	useREST := o.rng.Intn(2) == 0
	o.mu.Unlock()

	from, to := accounts[fromIdx], accounts[toIdx]
	if from.Balance.LessThan(amount) {
		amount = from.Balance.Mul(decimal.RequireFromString("0.1"))
	}

	return o.CreateTransaction(ctx, from.AccountNumber, to.AccountNumber, amount, useREST)
}

// RunSimulation sends n random transactions, pausing delay between them.
// It returns how many were accepted.
func (o *Orchestrator) RunSimulation(ctx context.Context, n int, delay time.Duration) (int, error) {
	if n <= 0 {
		return 0, errors.E(errors.Invalid, "transaction count must be positive", nil)
	}
	o.Logger.Info("starting simulation", zap.Int("transactions", n), zap.Duration("delay", delay))

	accepted := 0
	for i := 0; i < n; i++ {
		tx, err := o.SimulateRandomTransaction(ctx)
		if err == nil {
			accepted++
			o.Logger.Info("simulated transaction", zap.Int("index", i+1), zap.Int("total", n), zap.String("transaction_id", tx.TxID))
		}
		if i < n-1 {
			if err := o.sleep(ctx, delay); err != nil {
				return accepted, err
			}
		}
	}

	o.Logger.Info("simulation completed", zap.Int("accepted", accepted))
	return accepted, nil
}

func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
