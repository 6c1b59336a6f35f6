package chaos

import (
	// Go Internal Packages
	"fmt"
	"math/rand"
	"sync"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"

	// External Packages
	"go.uber.org/zap"
)

// Defaults for the typed injection helpers.
const (
	DefaultDelayDuration            = 30 * time.Second
	DefaultRandomFailureDuration    = 60 * time.Second
	DefaultRandomFailureProbability = 0.5
	DefaultOutageDuration           = 60 * time.Second
	DefaultTimeout                  = 5 * time.Second
	DefaultTimeoutDuration          = 30 * time.Second
	DefaultInvalidProbability       = 0.3
	DefaultInvalidDuration          = 30 * time.Second
)

// Engine registers time-bounded failures against services and answers whether
// a failure is currently in effect. Expired events are evicted lazily by the
// next query rather than by a timer.
type Engine struct {
	mu      sync.Mutex
	active  []models.ChaosEvent
	history []models.ChaosEvent
	enabled bool
	seq     uint64

	now    func() time.Time
	rng    *rand.Rand
	logger *zap.Logger
}

type Option func(*Engine)

// WithClock sets the wall clock consulted for expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the source of the probability draws.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		enabled: true,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Inject validates failure and registers it against service for duration.
// An empty service means the global scope.
func (e *Engine) Inject(service string, failure models.Failure, duration time.Duration) (string, error) {
	if failure == nil {
		return "", errors.EmptyParamErr("failure")
	}
	if err := failure.Validate(); err != nil {
		return "", err
	}
	if duration <= 0 {
		return "", errors.E(errors.Invalid, "duration must be positive", nil)
	}
	if service == "" {
		service = models.GlobalScope
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	e.seq++
	event := models.ChaosEvent{
		ID:          fmt.Sprintf("%s_%s_%d_%d", models.EventIDPrefix(failure), service, start.Unix(), e.seq),
		Service:     service,
		Start:       start,
		End:         start.Add(duration),
		Severity:    failure.Severity(),
		Description: failure.Describe(service, duration),
		Failure:     failure,
	}
	e.active = append(e.active, event)
	e.history = append(e.history, event)

	e.logger.Info("injected chaos event",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind())),
		zap.String("service", service),
		zap.String("description", event.Description),
		zap.Time("end_time", event.End))
	return event.ID, nil
}

func (e *Engine) InjectNetworkDelay(service string, delay, duration time.Duration) (string, error) {
	return e.Inject(service, models.NetworkDelay{Delay: delay}, duration)
}

func (e *Engine) FailTransactionsRandomly(probability float64, duration time.Duration) (string, error) {
	return e.Inject(models.GlobalScope, models.RandomFailure{Probability: probability}, duration)
}

func (e *Engine) SimulateServiceOutage(service string, duration time.Duration) (string, error) {
	return e.Inject(service, models.ServiceDown{}, duration)
}

func (e *Engine) InjectTimeout(service string, timeout, duration time.Duration) (string, error) {
	return e.Inject(service, models.Timeout{Timeout: timeout}, duration)
}

func (e *Engine) InjectInvalidResponses(service string, probability float64, duration time.Duration) (string, error) {
	return e.Inject(service, models.InvalidResponse{Probability: probability}, duration)
}

// Stop cancels an active event. The history entry is kept. Events that have
// already expired cannot be stopped.
func (e *Engine) Stop(eventID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, event := range e.activeLocked(e.now()) {
		if event.ID == eventID {
			e.active = append(e.active[:i], e.active[i+1:]...)
			e.logger.Info("stopped chaos event", zap.String("event_id", eventID), zap.String("description", event.Description))
			return true
		}
	}
	return false
}

// StopAll clears the active set and returns how many events were removed.
func (e *Engine) StopAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := len(e.activeLocked(e.now()))
	e.active = nil
	e.logger.Info("stopped all chaos events", zap.Int("count", count))
	return count
}

// ActiveEvents evicts every event whose end time is not after now and returns
// the remainder in injection order.
func (e *Engine) ActiveEvents(now time.Time) []models.ChaosEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ChaosEvent(nil), e.activeLocked(now)...)
}

func (e *Engine) activeLocked(now time.Time) []models.ChaosEvent {
	kept := e.active[:0]
	for _, event := range e.active {
		if event.ActiveAt(now) {
			kept = append(kept, event)
			continue
		}
		e.logger.Debug("chaos event expired", zap.String("event_id", event.ID))
	}
	// clear the tail so evicted events are not retained by the backing array
	for i := len(kept); i < len(e.active); i++ {
		e.active[i] = models.ChaosEvent{}
	}
	e.active = kept
	return kept
}

// firstActiveLocked returns the first active event of kind matching service.
// It honours the master switch.
func (e *Engine) firstActiveLocked(kind models.FailureKind, service string) (models.ChaosEvent, bool) {
	active := e.activeLocked(e.now())
	if !e.enabled {
		return models.ChaosEvent{}, false
	}
	for _, event := range active {
		if event.Kind() == kind && event.Matches(service) {
			return event, true
		}
	}
	return models.ChaosEvent{}, false
}

// ShouldFailTransaction draws independently against every active random
// failure, whatever its service, and reports true on the first hit.
func (e *Engine) ShouldFailTransaction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.activeLocked(e.now())
	if !e.enabled {
		return false
	}
	for _, event := range active {
		if event.Kind() != models.RandomFailureKind {
			continue
		}
		if e.drawLocked(event.Failure.(models.RandomFailure).Probability) {
			return true
		}
	}
	return false
}

// DelayFor returns the delay of the first active network delay for service.
func (e *Engine) DelayFor(service string) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	event, ok := e.firstActiveLocked(models.NetworkDelayKind, service)
	if !ok {
		return 0
	}
	return event.Failure.(models.NetworkDelay).Delay
}

func (e *Engine) IsServiceDown(service string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.firstActiveLocked(models.ServiceDownKind, service)
	return ok
}

// TimeoutFor returns the injected request timeout for service, if any.
func (e *Engine) TimeoutFor(service string) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	event, ok := e.firstActiveLocked(models.TimeoutKind, service)
	if !ok {
		return 0, false
	}
	return event.Failure.(models.Timeout).Timeout, true
}

// ShouldCorruptResponse draws against the first active invalid-response event
// for service.
func (e *Engine) ShouldCorruptResponse(service string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	event, ok := e.firstActiveLocked(models.InvalidResponseKind, service)
	if !ok {
		return false
	}
	return e.drawLocked(event.Failure.(models.InvalidResponse).Probability)
}

func (e *Engine) drawLocked(probability float64) bool {
	return e.rng.Float64() < probability
}

// History returns up to limit injected events, most recent first.
// A non-positive limit returns the full history.
func (e *Engine) History(limit int) []models.ChaosEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.ChaosEvent, 0, n)
	for i := len(e.history) - 1; i >= len(e.history)-n; i-- {
		out = append(out, e.history[i])
	}
	return out
}

func (e *Engine) Status() models.ChaosStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := append([]models.ChaosEvent(nil), e.activeLocked(e.now())...)
	return models.ChaosStatus{
		Enabled:       e.enabled,
		ActiveCount:   len(active),
		ActiveEvents:  active,
		TotalInjected: len(e.history),
	}
}

// Enable restores the effect of registered events.
func (e *Engine) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	e.logger.Info("chaos engine enabled")
}

// Disable suppresses the effect of every event. Events stay registered and
// keep expiring on schedule.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	e.logger.Info("chaos engine disabled")
}

func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}
