package models

import (
	// Go Internal Packages
	"encoding/json"
	"fmt"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
)

// GlobalScope is the service name of events that apply to every service.
const GlobalScope = "global"

type FailureKind string

const (
	NetworkDelayKind    FailureKind = "NETWORK_DELAY"
	ServiceDownKind     FailureKind = "SERVICE_DOWN"
	RandomFailureKind   FailureKind = "RANDOM_FAILURE"
	TimeoutKind         FailureKind = "TIMEOUT"
	InvalidResponseKind FailureKind = "INVALID_RESPONSE"
)

// Failure is one of NetworkDelay, ServiceDown, RandomFailure, Timeout or
// InvalidResponse. Each variant carries only its own parameters.
type Failure interface {
	Kind() FailureKind
	Validate() error
	Severity() string
	Describe(service string, duration time.Duration) string
	Parameters() map[string]any
	idPrefix() string
}

type NetworkDelay struct {
	Delay time.Duration
}

type ServiceDown struct{}

type RandomFailure struct {
	Probability float64
}

type Timeout struct {
	Timeout time.Duration
}

type InvalidResponse struct {
	Probability float64
}

func (NetworkDelay) Kind() FailureKind    { return NetworkDelayKind }
func (ServiceDown) Kind() FailureKind     { return ServiceDownKind }
func (RandomFailure) Kind() FailureKind   { return RandomFailureKind }
func (Timeout) Kind() FailureKind         { return TimeoutKind }
func (InvalidResponse) Kind() FailureKind { return InvalidResponseKind }

func (NetworkDelay) idPrefix() string    { return "delay" }
func (ServiceDown) idPrefix() string     { return "outage" }
func (RandomFailure) idPrefix() string   { return "random_fail" }
func (Timeout) idPrefix() string         { return "timeout" }
func (InvalidResponse) idPrefix() string { return "invalid" }

func (NetworkDelay) Severity() string    { return "medium" }
func (ServiceDown) Severity() string     { return "high" }
func (RandomFailure) Severity() string   { return "high" }
func (Timeout) Severity() string         { return "high" }
func (InvalidResponse) Severity() string { return "medium" }

func (f NetworkDelay) Validate() error {
	if f.Delay < 0 {
		return errors.E(errors.Invalid, "delay_ms cannot be negative", nil)
	}
	return nil
}

func (ServiceDown) Validate() error { return nil }

func (f RandomFailure) Validate() error {
	return validateProbability(f.Probability)
}

func (f Timeout) Validate() error {
	if f.Timeout <= 0 {
		return errors.E(errors.Invalid, "timeout_ms must be positive", nil)
	}
	return nil
}

func (f InvalidResponse) Validate() error {
	return validateProbability(f.Probability)
}

func validateProbability(p float64) error {
	// NaN fails both comparisons
	if !(p >= 0 && p <= 1) {
		return errors.OutOfRangeErr("probability", p, 0, 1)
	}
	return nil
}

func (f NetworkDelay) Describe(service string, _ time.Duration) string {
	return fmt.Sprintf("Network delay of %dms injected to %s", f.Delay.Milliseconds(), service)
}

func (ServiceDown) Describe(service string, d time.Duration) string {
	return fmt.Sprintf("%s service outage for %d seconds", service, int64(d.Seconds()))
}

func (f RandomFailure) Describe(_ string, _ time.Duration) string {
	return fmt.Sprintf("Random transaction failures with %.1f%% probability", f.Probability*100)
}

func (f Timeout) Describe(service string, _ time.Duration) string {
	return fmt.Sprintf("Request timeouts (%dms) for %s", f.Timeout.Milliseconds(), service)
}

func (f InvalidResponse) Describe(service string, _ time.Duration) string {
	return fmt.Sprintf("Invalid responses from %s (%.1f%% probability)", service, f.Probability*100)
}

func (f NetworkDelay) Parameters() map[string]any {
	return map[string]any{"delay_ms": f.Delay.Milliseconds()}
}

func (ServiceDown) Parameters() map[string]any { return map[string]any{} }

func (f RandomFailure) Parameters() map[string]any {
	return map[string]any{"probability": f.Probability}
}

func (f Timeout) Parameters() map[string]any {
	return map[string]any{"timeout_ms": f.Timeout.Milliseconds()}
}

func (f InvalidResponse) Parameters() map[string]any {
	return map[string]any{"probability": f.Probability}
}

// EventIDPrefix returns the id prefix used for events of the failure's kind.
func EventIDPrefix(f Failure) string {
	return f.idPrefix()
}

// ChaosEvent is a time-bounded failure registered against a service.
type ChaosEvent struct {
	ID          string
	Service     string
	Start       time.Time
	End         time.Time
	Severity    string
	Description string
	Failure     Failure
}

func (e ChaosEvent) Kind() FailureKind {
	return e.Failure.Kind()
}

// ActiveAt reports whether the event is still in effect at now.
func (e ChaosEvent) ActiveAt(now time.Time) bool {
	return e.End.After(now)
}

// Matches reports whether the event targets service, either by name or globally.
func (e ChaosEvent) Matches(service string) bool {
	return e.Service == service || e.Service == GlobalScope
}

func (e ChaosEvent) MarshalJSON() ([]byte, error) {
	params := e.Failure.Parameters()
	params["duration_seconds"] = int64(e.End.Sub(e.Start).Seconds())
	return json.Marshal(struct {
		ID          string         `json:"id"`
		Type        FailureKind    `json:"type"`
		Service     string         `json:"service"`
		StartTime   time.Time      `json:"start_time"`
		EndTime     time.Time      `json:"end_time"`
		Severity    string         `json:"severity"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}{
		ID:          e.ID,
		Type:        e.Kind(),
		Service:     e.Service,
		StartTime:   e.Start,
		EndTime:     e.End,
		Severity:    e.Severity,
		Description: e.Description,
		Parameters:  params,
	})
}

// ChaosStatus summarises the engine for dashboards.
type ChaosStatus struct {
	Enabled       bool         `json:"enabled"`
	ActiveCount   int          `json:"active_failures"`
	ActiveEvents  []ChaosEvent `json:"active_events"`
	TotalInjected int          `json:"total_events_injected"`
}
