package chaos

import (
	// Go Internal Packages
	"math/rand"
	"sync"
	"testing"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
	models "bgmock-twin/models"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *fakeClock) {
	clock := &fakeClock{t: t0}
	e := NewEngine(zap.NewNop(), WithClock(clock.Now), WithRand(rand.New(rand.NewSource(42))))
	return e, clock
}

func TestServiceOutageWindow(t *testing.T) {
	e, clock := newTestEngine()
	_, err := e.SimulateServiceOutage("bank-a", 60*time.Second)
	require.NoError(t, err)

	clock.Set(t0.Add(30 * time.Second))
	assert.True(t, e.IsServiceDown("bank-a"))
	assert.False(t, e.IsServiceDown("bank-b"))

	clock.Set(t0.Add(61 * time.Second))
	assert.False(t, e.IsServiceDown("bank-a"))
	assert.False(t, e.IsServiceDown("bank-b"))
}

func TestActiveEventsExpiryIsPermanent(t *testing.T) {
	e, _ := newTestEngine()
	d := 10 * time.Second
	id, err := e.InjectNetworkDelay("clearing", 200*time.Millisecond, d)
	require.NoError(t, err)

	before := e.ActiveEvents(t0.Add(d - time.Millisecond))
	require.Len(t, before, 1)
	assert.Equal(t, id, before[0].ID)

	assert.Empty(t, e.ActiveEvents(t0.Add(d+time.Millisecond)))
	assert.Empty(t, e.ActiveEvents(t0.Add(d-time.Millisecond)))

	history := e.History(10)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
}

func TestEventEndingExactlyNowIsExpired(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.SimulateServiceOutage("bank-a", time.Second)
	require.NoError(t, err)
	assert.Empty(t, e.ActiveEvents(t0.Add(time.Second)))
}

func TestRandomFailureProbabilityBounds(t *testing.T) {
	e, _ := newTestEngine()
	never, err := e.FailTransactionsRandomly(0.0, time.Minute)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.False(t, e.ShouldFailTransaction())
	}

	require.True(t, e.Stop(never))
	_, err = e.FailTransactionsRandomly(1.0, time.Minute)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.True(t, e.ShouldFailTransaction())
	}
}

func TestRandomFailureDrawsEveryEvent(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.FailTransactionsRandomly(0.0, time.Minute)
	require.NoError(t, err)
	_, err = e.FailTransactionsRandomly(1.0, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.True(t, e.ShouldFailTransaction())
	}
}

func TestRandomFailureScopedToService(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.Inject("bank-a", models.RandomFailure{Probability: 1.0}, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.True(t, e.ShouldFailTransaction())
	}

	e.Disable()
	assert.False(t, e.ShouldFailTransaction())
}

func TestInjectRejectsInvalidParameters(t *testing.T) {
	e, _ := newTestEngine()

	for _, p := range []float64{-0.1, 1.01} {
		_, err := e.FailTransactionsRandomly(p, time.Minute)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.Invalid))
	}
	_, err := e.InjectInvalidResponses("bank-a", 2, time.Minute)
	assert.True(t, errors.Is(err, errors.Invalid))
	_, err = e.InjectTimeout("bank-a", 0, time.Minute)
	assert.True(t, errors.Is(err, errors.Invalid))
	_, err = e.InjectNetworkDelay("bank-a", -time.Second, time.Minute)
	assert.True(t, errors.Is(err, errors.Invalid))
	_, err = e.SimulateServiceOutage("bank-a", 0)
	assert.True(t, errors.Is(err, errors.Invalid))

	assert.Empty(t, e.History(0))
	assert.Empty(t, e.ActiveEvents(t0))
}

func TestDisableSuppressesEffectsOnly(t *testing.T) {
	e, clock := newTestEngine()
	_, _ = e.InjectNetworkDelay("bank-a", 300*time.Millisecond, time.Minute)
	_, _ = e.SimulateServiceOutage("bank-b", time.Minute)
	_, _ = e.FailTransactionsRandomly(1.0, time.Minute)
	_, _ = e.InjectTimeout("clearing", time.Second, 2*time.Minute)

	e.Disable()
	assert.False(t, e.ShouldFailTransaction())
	assert.Zero(t, e.DelayFor("bank-a"))
	assert.False(t, e.IsServiceDown("bank-b"))
	_, ok := e.TimeoutFor("clearing")
	assert.False(t, ok)
	assert.Len(t, e.ActiveEvents(t0), 4)

	clock.Set(t0.Add(90 * time.Second))
	assert.Len(t, e.ActiveEvents(clock.Now()), 1)

	e.Enable()
	timeout, ok := e.TimeoutFor("clearing")
	assert.True(t, ok)
	assert.Equal(t, time.Second, timeout)
	assert.False(t, e.IsServiceDown("bank-b"))
}

func TestEnableRestoresWithoutReinjecting(t *testing.T) {
	e, _ := newTestEngine()
	_, _ = e.InjectNetworkDelay("bank-a", 250*time.Millisecond, time.Minute)

	e.Disable()
	assert.Zero(t, e.DelayFor("bank-a"))
	e.Enable()
	assert.Equal(t, 250*time.Millisecond, e.DelayFor("bank-a"))
	assert.Equal(t, 1, e.Status().TotalInjected)
}

func TestDelayForFirstMatchingService(t *testing.T) {
	e, _ := newTestEngine()
	_, _ = e.InjectNetworkDelay("bank-a", 100*time.Millisecond, time.Minute)
	_, _ = e.InjectNetworkDelay("bank-a", 900*time.Millisecond, time.Minute)
	_, _ = e.InjectNetworkDelay("bank-b", 500*time.Millisecond, time.Minute)

	assert.Equal(t, 100*time.Millisecond, e.DelayFor("bank-a"))
	assert.Equal(t, 500*time.Millisecond, e.DelayFor("bank-b"))
	assert.Zero(t, e.DelayFor("clearing"))
}

func TestGlobalScopeMatchesEveryService(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.Inject("", models.ServiceDown{}, time.Minute)
	require.NoError(t, err)
	assert.True(t, e.IsServiceDown("bank-a"))
	assert.True(t, e.IsServiceDown("clearing"))
}

func TestStopAndStopAll(t *testing.T) {
	e, _ := newTestEngine()
	a, _ := e.SimulateServiceOutage("bank-a", time.Minute)
	_, _ = e.SimulateServiceOutage("bank-b", time.Minute)
	_, _ = e.InjectTimeout("clearing", time.Second, time.Minute)

	assert.True(t, e.Stop(a))
	assert.False(t, e.Stop(a))
	assert.False(t, e.IsServiceDown("bank-a"))
	assert.True(t, e.IsServiceDown("bank-b"))

	assert.Equal(t, 2, e.StopAll())
	assert.Empty(t, e.ActiveEvents(t0))
	assert.Len(t, e.History(0), 3)
}

func TestEventIDsUniqueWithinSameInstant(t *testing.T) {
	e, _ := newTestEngine()
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		id, err := e.SimulateServiceOutage("bank-a", time.Minute)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	e, clock := newTestEngine()
	first, _ := e.SimulateServiceOutage("bank-a", time.Second)
	clock.Set(t0.Add(time.Second))
	second, _ := e.InjectTimeout("bank-a", time.Second, time.Second)
	third, _ := e.FailTransactionsRandomly(0.2, time.Second)

	history := e.History(2)
	require.Len(t, history, 2)
	assert.Equal(t, third, history[0].ID)
	assert.Equal(t, second, history[1].ID)
	assert.Equal(t, first, e.History(0)[2].ID)
}

func TestStatusReportsActiveEvents(t *testing.T) {
	e, clock := newTestEngine()
	_, _ = e.SimulateServiceOutage("bank-a", time.Second)
	_, _ = e.InjectInvalidResponses("bank-b", 0.3, time.Minute)
	clock.Set(t0.Add(2 * time.Second))

	status := e.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, 1, status.ActiveCount)
	require.Len(t, status.ActiveEvents, 1)
	assert.Equal(t, models.InvalidResponseKind, status.ActiveEvents[0].Kind())
	assert.Equal(t, "medium", status.ActiveEvents[0].Severity)
	assert.Equal(t, 2, status.TotalInjected)
}

func TestConcurrentQueriesAndInjections(t *testing.T) {
	e, clock := newTestEngine()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if j%10 == 0 {
					_, _ = e.InjectNetworkDelay("bank-a", time.Millisecond, time.Duration(j+1)*time.Second)
				}
				_ = e.DelayFor("bank-a")
				_ = e.ShouldFailTransaction()
				clock.Set(t0.Add(time.Duration(i*j) * time.Millisecond))
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, e.History(0), 80)
}

func TestStopExpiredEvent(t *testing.T) {
	e, clock := newTestEngine()
	id, err := e.SimulateServiceOutage("clearing", 10*time.Second)
	require.NoError(t, err)
	_, err = e.InjectNetworkDelay("bank-a", time.Second, time.Minute)
	require.NoError(t, err)

	clock.Set(t0.Add(10 * time.Second))
	assert.False(t, e.Stop(id))
	assert.Equal(t, 1, e.StopAll())
	assert.Len(t, e.History(0), 2)
}
