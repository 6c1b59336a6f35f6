package models

import (
	// Go Internal Packages
	"time"

	// External Packages
	"github.com/shopspring/decimal"
)

type LoadProfile string

const (
	ProfileConstant LoadProfile = "constant"
	ProfileRamp     LoadProfile = "ramp"
	ProfileSpike    LoadProfile = "spike"
	ProfileWave     LoadProfile = "wave"
)

// ParseLoadProfile accepts the profile name case-sensitively in lower case.
func ParseLoadProfile(s string) (LoadProfile, bool) {
	switch LoadProfile(s) {
	case ProfileConstant, ProfileRamp, ProfileSpike, ProfileWave:
		return LoadProfile(s), true
	}
	return "", false
}

type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
	AttemptTimeout AttemptStatus = "timeout"
)

// AccountPair is a (from, to) pair used by the load driver.
type AccountPair struct {
	From string
	To   string
}

// TransactionMetrics is the outcome of one synthetic attempt.
type TransactionMetrics struct {
	TransactionID string
	StartTime     time.Time
	EndTime       time.Time
	Status        AttemptStatus
	LatencyMs     float64
	FromAccount   string
	ToAccount     string
	Amount        decimal.Decimal
	ErrorMessage  string
}

type LatencySummary struct {
	Samples  int     `json:"samples"`
	AvgMs    float64 `json:"avg_ms"`
	MedianMs float64 `json:"median_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
	StddevMs float64 `json:"stddev_ms"`
}

// PerformanceStats is recomputed from the full sample set of a session.
type PerformanceStats struct {
	SessionID              string         `json:"session_id" bson:"_id"`
	Profile                LoadProfile    `json:"profile" bson:"profile"`
	TargetTPS              float64        `json:"target_tps" bson:"target_tps"`
	StartedAt              time.Time      `json:"started_at" bson:"started_at"`
	DurationSeconds        float64        `json:"test_duration_seconds" bson:"test_duration_seconds"`
	TotalTransactions      int            `json:"total_transactions" bson:"total_transactions"`
	SuccessfulTransactions int            `json:"successful_transactions" bson:"successful_transactions"`
	FailedTransactions     int            `json:"failed_transactions" bson:"failed_transactions"`
	SuccessRatePercent     float64        `json:"success_rate_percent" bson:"success_rate_percent"`
	ThroughputTPS          float64        `json:"throughput_tps" bson:"throughput_tps"`
	Latency                LatencySummary `json:"latency" bson:"latency"`
	Stopped                bool           `json:"stopped" bson:"stopped"`
}

type Throughput struct {
	TPS                    float64 `json:"throughput_tps"`
	Count                  int     `json:"transactions_measured"`
	DurationSeconds        float64 `json:"duration_seconds"`
	SuccessfulTransactions int     `json:"successful_transactions"`
	FailedTransactions     int     `json:"failed_transactions"`
}

type HistoryEntry struct {
	TransactionID string          `json:"transaction_id"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
	Status        AttemptStatus   `json:"status"`
	LatencyMs     float64         `json:"latency_ms"`
	Timestamp     time.Time       `json:"timestamp"`
	Error         string          `json:"error,omitempty"`
}

type DriverStatus struct {
	Running               bool             `json:"is_running"`
	TransactionsGenerated int              `json:"transactions_generated"`
	StartTime             *time.Time       `json:"start_time"`
	CurrentStats          PerformanceStats `json:"current_stats"`
}
