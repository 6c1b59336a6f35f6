package load

import (
	// Go Internal Packages
	"context"
	"math/rand"
	"sync"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"
	utils "bgmock-twin/utils"

	// External Packages
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// FailureProbability is the independent failure rate of every synthetic attempt.
	FailureProbability = 0.05
	MinLatency         = 50 * time.Millisecond
	MaxLatency         = 500 * time.Millisecond
	DefaultSamples     = 100

	// idleTPS paces the loop while a profile asks for no traffic (ramp start).
	idleTPS = 10

	minAmountCents = 10_000
	maxAmountCents = 1_000_000
)

var DefaultAccountPairs = []models.AccountPair{
	{From: "ACC001", To: "ACC002"},
	{From: "ACC002", To: "ACC001"},
	{From: "ACC003", To: "ACC004"},
	{From: "ACC005", To: "ACC006"},
}

// Recorder receives every attempt of a load session.
type Recorder interface {
	RecordTransaction(tx models.Transaction) bool
	UpdateTransactionStatus(id string, status models.TransactionStatus, message string) bool
	AppendRestCall(method, endpoint string, statusCode int, latency time.Duration)
}

// FailureSource biases attempt outcomes with injected chaos.
type FailureSource interface {
	ShouldFailTransaction() bool
	DelayFor(service string) time.Duration
	IsServiceDown(service string) bool
	TimeoutFor(service string) (time.Duration, bool)
}

type Request struct {
	TargetTPS float64
	Duration  time.Duration
	Profile   models.LoadProfile
	Pairs     []models.AccountPair
}

// Driver runs one synthetic load session at a time.
type Driver struct {
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	sessionID string
	request   Request
	startTime time.Time
	metrics   []models.TransactionMetrics
	stats     models.PerformanceStats

	rngMu sync.Mutex
	rng   *rand.Rand

	recorder Recorder
	chaos    FailureSource
	service  string
	clearing string
	now      func() time.Time
	sleep    utils.SleepFunc
	logger   *zap.Logger
}

type Option func(*Driver)

// WithChaos biases outcomes with the failures active for service.
func WithChaos(chaos FailureSource, service string) Option {
	return func(d *Driver) {
		d.chaos = chaos
		d.service = service
	}
}

// WithRecorder mirrors every session attempt into r.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithClearingNumber sets the origin clearing number of mirrored transactions.
func WithClearingNumber(clearing string) Option {
	return func(d *Driver) { d.clearing = clearing }
}

func WithRand(rng *rand.Rand) Option {
	return func(d *Driver) { d.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithSleep replaces the function used to simulate attempt latency.
func WithSleep(sleep utils.SleepFunc) Option {
	return func(d *Driver) { d.sleep = sleep }
}

func NewDriver(logger *zap.Logger, opts ...Option) *Driver {
	d := &Driver{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		sleep:  utils.Sleep,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GenerateLoad drives synthetic attempts paced to the profile's instantaneous
// rate until the duration elapses, ctx ends or Stop is called. Statistics are
// computed once over everything collected. Starting while a session runs
// returns a Conflict error.
func (d *Driver) GenerateLoad(ctx context.Context, req Request) (models.PerformanceStats, error) {
	if req.TargetTPS <= 0 {
		return models.PerformanceStats{}, errors.E(errors.Invalid, "target tps must be positive", nil)
	}
	if req.Duration <= 0 {
		return models.PerformanceStats{}, errors.E(errors.Invalid, "duration must be positive", nil)
	}
	if req.Profile == "" {
		req.Profile = models.ProfileConstant
	}
	if _, ok := models.ParseLoadProfile(string(req.Profile)); !ok {
		return models.PerformanceStats{}, errors.E(errors.Invalid, "unknown load profile "+string(req.Profile), nil)
	}
	if len(req.Pairs) == 0 {
		req.Pairs = DefaultAccountPairs
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return models.PerformanceStats{}, errors.E(errors.Conflict, "load session already running", nil)
	}
	sessCtx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.sessionID = uuid.NewString()
	d.request = req
	d.startTime = d.now()
	d.metrics = nil
	d.stats = models.PerformanceStats{}
	start := d.startTime
	d.mu.Unlock()
	defer cancel()

	d.logger.Info("starting load session",
		zap.String("session_id", d.sessionID),
		zap.Float64("tps", req.TargetTPS),
		zap.Duration("duration", req.Duration),
		zap.String("profile", string(req.Profile)))

	deadline := start.Add(req.Duration)
	limiter := rate.NewLimiter(rate.Limit(idleTPS), 1)
	duration := req.Duration.Seconds()

	for sessCtx.Err() == nil {
		elapsed := d.now().Sub(start)
		if elapsed >= req.Duration {
			break
		}

		current := RateAt(req.Profile, req.TargetTPS, elapsed.Seconds(), duration)
		if current <= 0 {
			current = idleTPS
		}
		limiter.SetLimit(rate.Limit(current))

		waitCtx, waitCancel := context.WithDeadline(sessCtx, deadline)
		err := limiter.Wait(waitCtx)
		waitCancel()
		if err != nil {
			break
		}

		pair := req.Pairs[d.intn(len(req.Pairs))]
		m := d.attempt(context.WithoutCancel(sessCtx), pair, d.randomAmount(), true)

		d.mu.Lock()
		d.metrics = append(d.metrics, m)
		d.mu.Unlock()
	}

	return d.finalize(sessCtx.Err() != nil && ctx.Err() == nil), nil
}

func (d *Driver) finalize(stopped bool) models.PerformanceStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := ComputeStats(d.metrics)
	stats.SessionID = d.sessionID
	stats.Profile = d.request.Profile
	stats.TargetTPS = d.request.TargetTPS
	stats.StartedAt = d.startTime
	stats.Stopped = stopped
	d.stats = stats
	d.running = false
	d.cancel = nil

	d.logger.Info("load session finished",
		zap.String("session_id", stats.SessionID),
		zap.Int("transactions", stats.TotalTransactions),
		zap.Float64("throughput_tps", stats.ThroughputTPS),
		zap.Float64("success_rate_percent", stats.SuccessRatePercent),
		zap.Bool("stopped", stopped))
	return stats
}

// Stop asks the running session to exit. The attempt in flight finishes.
func (d *Driver) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.cancel == nil {
		return false
	}
	d.cancel()
	d.logger.Info("load session stop requested", zap.String("session_id", d.sessionID))
	return true
}

// MeasureLatency runs samples back-to-back attempts without pacing.
func (d *Driver) MeasureLatency(ctx context.Context, samples int) (models.LatencySummary, error) {
	if samples <= 0 {
		samples = DefaultSamples
	}

	latencies := make([]float64, 0, samples)
	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			return models.LatencySummary{}, err
		}
		m := d.attempt(ctx, DefaultAccountPairs[0], decimal.NewFromInt(1000), false)
		latencies = append(latencies, m.LatencyMs)
	}
	return Summarize(latencies), nil
}

// Throughput is derived from the first and last recorded attempts.
func (d *Driver) Throughput() models.Throughput {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := ComputeStats(d.metrics)
	return models.Throughput{
		TPS:                    stats.ThroughputTPS,
		Count:                  stats.TotalTransactions,
		DurationSeconds:        stats.DurationSeconds,
		SuccessfulTransactions: stats.SuccessfulTransactions,
		FailedTransactions:     stats.FailedTransactions,
	}
}

// History returns the most recent limit attempts, oldest first.
func (d *Driver) History(limit int) []models.HistoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	recent := d.metrics
	if limit > 0 && limit < len(recent) {
		recent = recent[len(recent)-limit:]
	}
	entries := make([]models.HistoryEntry, len(recent))
	for i, m := range recent {
		entries[i] = models.HistoryEntry{
			TransactionID: m.TransactionID,
			FromAccount:   m.FromAccount,
			ToAccount:     m.ToAccount,
			Amount:        m.Amount,
			Status:        m.Status,
			LatencyMs:     utils.Round(m.LatencyMs, 2),
			Timestamp:     m.StartTime,
			Error:         m.ErrorMessage,
		}
	}
	return entries
}

func (d *Driver) Status() models.DriverStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := models.DriverStatus{
		Running:               d.running,
		TransactionsGenerated: len(d.metrics),
		CurrentStats:          d.stats,
	}
	if !d.startTime.IsZero() {
		start := d.startTime
		status.StartTime = &start
	}
	if d.running {
		status.CurrentStats = ComputeStats(d.metrics)
	}
	return status
}

// attempt simulates one transaction and returns its outcome.
func (d *Driver) attempt(ctx context.Context, pair models.AccountPair, amount decimal.Decimal, record bool) models.TransactionMetrics {
	start := d.now()
	latency := MinLatency + time.Duration(d.float64()*float64(MaxLatency-MinLatency))
	status, message := models.AttemptSuccess, ""

	switch {
	case d.chaos != nil && d.chaos.IsServiceDown(d.service):
		status, message = models.AttemptFailed, "service unavailable"
	default:
		if d.chaos != nil {
			latency += d.chaos.DelayFor(d.service)
			if timeout, ok := d.chaos.TimeoutFor(d.service); ok {
				latency = timeout
				status, message = models.AttemptTimeout, "request timed out"
				break
			}
			if d.chaos.ShouldFailTransaction() {
				status, message = models.AttemptFailed, "chaos injected failure"
				break
			}
		}
		if d.float64() < FailureProbability {
			status, message = models.AttemptFailed, "simulated failure"
		}
	}

	_ = d.sleep(ctx, latency)

	m := models.TransactionMetrics{
		TransactionID: uuid.NewString(),
		StartTime:     start,
		EndTime:       start.Add(latency),
		Status:        status,
		LatencyMs:     float64(latency) / float64(time.Millisecond),
		FromAccount:   pair.From,
		ToAccount:     pair.To,
		Amount:        amount,
		ErrorMessage:  message,
	}
	if record && d.recorder != nil {
		d.mirror(m)
	}
	return m
}

// mirror replays the attempt into the recorder as a transaction lifecycle.
func (d *Driver) mirror(m models.TransactionMetrics) {
	tx := models.NewTransaction(d.clearing, m.FromAccount, m.ToAccount, m.Amount, m.StartTime)
	tx.TxID = m.TransactionID
	d.recorder.RecordTransaction(tx)

	code := 200
	switch m.Status {
	case models.AttemptSuccess:
		d.recorder.UpdateTransactionStatus(tx.TxID, models.StatusSuccess, "load test")
	case models.AttemptTimeout:
		// the upstream outcome is unknown, the mirror stays pending
		code = 504
	default:
		code = 500
		d.recorder.UpdateTransactionStatus(tx.TxID, models.StatusFailed, m.ErrorMessage)
	}
	d.recorder.AppendRestCall("POST", "/api/transactions", code, m.EndTime.Sub(m.StartTime))
}

func (d *Driver) randomAmount() decimal.Decimal {
	cents := minAmountCents + d.int63n(maxAmountCents-minAmountCents)
	return decimal.New(cents, -2)
}

func (d *Driver) float64() float64 {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Float64()
}

func (d *Driver) intn(n int) int {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Intn(n)
}

func (d *Driver) int63n(n int64) int64 {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Int63n(n)
}
