package orchestrator

import (
	// Go Internal Packages
	"context"
	"fmt"
	"time"

	// Local Packages
	clients "bgmock-twin/clients"
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"
	chaos "bgmock-twin/services/chaos"
	utils "bgmock-twin/utils"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scenario is an end-to-end check run against the live bank network.
type Scenario interface {
	Name() string
	Run(ctx context.Context) error
}

// Fixture is the account and routing set up before each scenario.
type Fixture struct {
	AccountNumber   string
	BankgoodNumberA string
	BankgoodNumberB string
	InitialBalance  decimal.Decimal
	Amount          decimal.Decimal
	WaitTimeout     time.Duration
	PollInterval    time.Duration
}

// Env bundles the collaborators shared by all scenarios.
type Env struct {
	BankA    *clients.BankClient
	BankB    *clients.BankClient
	Clearing *clients.ClearingClient
	Fixture  Fixture
	Logger   *zap.Logger
}

func (e Env) step(name string, n int, msg string, fields ...zap.Field) {
	e.Logger.Info(msg, append([]zap.Field{zap.String("scenario", name), zap.Int("step", n)}, fields...)...)
}

// setup opens the fixture account in both banks and maps a bankgood number to
// each of them.
func (e Env) setup(ctx context.Context) error {
	f := e.Fixture
	if _, err := e.BankA.CreateAccount(ctx, models.Account{AccountNumber: f.AccountNumber, AccountHolder: "Jane Doe", Balance: f.InitialBalance}); err != nil {
		return fmt.Errorf("bank A setup failed: %w", err)
	}
	if _, err := e.BankB.CreateAccount(ctx, models.Account{AccountNumber: f.AccountNumber, AccountHolder: "John Doe", Balance: f.InitialBalance}); err != nil {
		return fmt.Errorf("bank B setup failed: %w", err)
	}
	if err := e.Clearing.CreateBankMapping(ctx, models.BankMapping{
		AccountNumber:  f.AccountNumber,
		ClearingNumber: e.BankA.ClearingNumber,
		BankgoodNumber: f.BankgoodNumberA,
		BankName:       e.BankA.Name,
	}); err != nil {
		return fmt.Errorf("bank A mapping failed: %w", err)
	}
	if err := e.Clearing.CreateBankMapping(ctx, models.BankMapping{
		AccountNumber:  f.AccountNumber,
		ClearingNumber: e.BankB.ClearingNumber,
		BankgoodNumber: f.BankgoodNumberB,
		BankName:       e.BankB.Name,
	}); err != nil {
		return fmt.Errorf("bank B mapping failed: %w", err)
	}
	return nil
}

// cleanup removes everything setup created. Failures are only logged.
func (e Env) cleanup(ctx context.Context) {
	f := e.Fixture
	for _, err := range []error{
		e.BankA.DeleteAccount(ctx, f.AccountNumber),
		e.BankB.DeleteAccount(ctx, f.AccountNumber),
		e.Clearing.DeleteBankMapping(ctx, f.BankgoodNumberA),
		e.Clearing.DeleteBankMapping(ctx, f.BankgoodNumberB),
	} {
		if err != nil {
			e.Logger.Warn("fixture cleanup failed", zap.Error(err))
		}
	}
}

// sendTransfers creates n outgoing transfers from bank A to bank B.
func (e Env) sendTransfers(ctx context.Context, name string, n int) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tx, err := e.BankA.CreateOutgoing(ctx, models.OutgoingTransactionRequest{
			FromAccountNumber: e.Fixture.AccountNumber,
			ToBankgoodNumber:  e.Fixture.BankgoodNumberB,
			Amount:            e.Fixture.Amount,
		})
		if err != nil {
			return ids, fmt.Errorf("transfer %d/%d: %w", i+1, n, err)
		}
		ids = append(ids, tx.TxID)
		e.step(name, 2, "sent transaction", zap.Int("index", i+1), zap.Int("total", n), zap.String("transaction_id", tx.TxID))
	}
	return ids, nil
}

// waitAll requires every transfer to finish with SUCCESS.
func (e Env) waitAll(ctx context.Context, name string, ids []string) error {
	for i, id := range ids {
		tx, err := e.BankA.WaitForTransaction(ctx, id, e.Fixture.WaitTimeout, e.Fixture.PollInterval)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", id, err)
		}
		if tx.Status != models.StatusSuccess {
			return errors.E(errors.Other, fmt.Sprintf("transaction %s finished with status %s", id, tx.Status), nil)
		}
		e.step(name, 3, "transaction completed", zap.Int("index", i+1), zap.String("transaction_id", id))
	}
	return nil
}

// InterbankTransfer sends transfers from bank A to bank B and expects each to succeed.
type InterbankTransfer struct {
	Env
	Transfers int
}

func (s *InterbankTransfer) Name() string { return "InterbankTransfer" }

func (s *InterbankTransfer) Run(ctx context.Context) error {
	name := s.Name()
	if err := s.setup(ctx); err != nil {
		return err
	}
	defer s.cleanup(context.WithoutCancel(ctx))
	s.step(name, 1, "accounts ready")

	n := s.Transfers
	if n <= 0 {
		n = 1
	}
	ids, err := s.sendTransfers(ctx, name, n)
	if err != nil {
		return err
	}
	return s.waitAll(ctx, name, ids)
}

// ClearingOutage takes the clearing service down through the chaos engine,
// sends transfers while it is unreachable and expects all of them to
// complete once it is back.
type ClearingOutage struct {
	Env
	Chaos     *chaos.Engine
	Service   string
	Outage    time.Duration
	Transfers int
	Sleep     utils.SleepFunc
}

func (s *ClearingOutage) Name() string { return "ClearingOutage" }

func (s *ClearingOutage) Run(ctx context.Context) error {
	name := s.Name()
	sleep := s.Sleep
	if sleep == nil {
		sleep = utils.Sleep
	}

	if err := s.setup(ctx); err != nil {
		return err
	}
	defer s.cleanup(context.WithoutCancel(ctx))
	s.step(name, 1, "accounts ready")

	eventID, err := s.Chaos.SimulateServiceOutage(s.Service, s.Outage)
	if err != nil {
		return err
	}
	defer s.Chaos.Stop(eventID)
	s.step(name, 2, "clearing outage started", zap.String("event_id", eventID), zap.Duration("duration", s.Outage))

	if s.Clearing.Health(ctx) {
		return errors.E(errors.Other, "clearing service still reachable during outage", nil)
	}

	ids, err := s.sendTransfers(ctx, name, s.Transfers)
	if err != nil {
		return err
	}

	for s.Chaos.IsServiceDown(s.Service) {
		if err := sleep(ctx, s.Fixture.PollInterval); err != nil {
			return err
		}
	}
	if !s.Clearing.Health(ctx) {
		return errors.UnavailableErr(s.Service, errors.E(errors.Other, "clearing service did not recover after outage", nil))
	}
	s.step(name, 3, "clearing outage ended")

	return s.waitAll(ctx, name, ids)
}

// Result is the outcome of one scenario run.
type Result struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds"`
}

// Summary aggregates the results of RunScenarios.
type Summary struct {
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// RunScenarios runs every scenario in order, pausing between them. A failing
// scenario does not stop the run.
func RunScenarios(ctx context.Context, logger *zap.Logger, pause time.Duration, sleep utils.SleepFunc, scenarios ...Scenario) Summary {
	if sleep == nil {
		sleep = utils.Sleep
	}
	summary := Summary{Results: make([]Result, 0, len(scenarios))}

	for i, scenario := range scenarios {
		if ctx.Err() != nil {
			break
		}
		logger.Info("running scenario", zap.String("scenario", scenario.Name()))

		start := time.Now()
		err := scenario.Run(ctx)
		result := Result{Name: scenario.Name(), Passed: err == nil, Duration: utils.Round(time.Since(start).Seconds(), 3)}
		if err != nil {
			result.Error = err.Error()
			summary.Failed++
			logger.Error("scenario failed", zap.String("scenario", scenario.Name()), zap.Error(err))
		} else {
			summary.Passed++
			logger.Info("scenario passed", zap.String("scenario", scenario.Name()))
		}
		summary.Results = append(summary.Results, result)

		if i < len(scenarios)-1 {
			_ = sleep(ctx, pause)
		}
	}

	logger.Info("scenarios finished", zap.Int("passed", summary.Passed), zap.Int("failed", summary.Failed))
	return summary
}
