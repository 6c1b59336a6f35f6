package load

import (
	// Go Internal Packages
	"math"
	"sort"

	// Local Packages
	models "bgmock-twin/models"
)

// Percentile returns the nearest-rank sample at index floor(p*n) of an
// ascending slice, without interpolation.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(p * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Summarize computes the latency summary of samples in milliseconds.
func Summarize(samples []float64) models.LatencySummary {
	n := len(samples)
	if n == 0 {
		return models.LatencySummary{}
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	// sample standard deviation
	var stddev float64
	if n > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		stddev = math.Sqrt(sq / float64(n-1))
	}

	return models.LatencySummary{
		Samples:  n,
		AvgMs:    mean,
		MedianMs: median,
		MinMs:    sorted[0],
		MaxMs:    sorted[n-1],
		P50Ms:    Percentile(sorted, 0.50),
		P95Ms:    Percentile(sorted, 0.95),
		P99Ms:    Percentile(sorted, 0.99),
		StddevMs: stddev,
	}
}

// ComputeStats derives the aggregate statistics of a session from every
// recorded attempt.
func ComputeStats(metrics []models.TransactionMetrics) models.PerformanceStats {
	var stats models.PerformanceStats
	if len(metrics) == 0 {
		return stats
	}

	latencies := make([]float64, len(metrics))
	for i, m := range metrics {
		latencies[i] = m.LatencyMs
		switch m.Status {
		case models.AttemptSuccess:
			stats.SuccessfulTransactions++
		case models.AttemptFailed:
			stats.FailedTransactions++
		}
	}

	stats.TotalTransactions = len(metrics)
	stats.DurationSeconds = metrics[len(metrics)-1].EndTime.Sub(metrics[0].StartTime).Seconds()
	stats.SuccessRatePercent = float64(stats.SuccessfulTransactions) / float64(stats.TotalTransactions) * 100
	if stats.DurationSeconds > 0 {
		stats.ThroughputTPS = float64(stats.TotalTransactions) / stats.DurationSeconds
	}
	stats.Latency = Summarize(latencies)
	return stats
}

// RateAt returns the instantaneous target rate of profile at elapsed into a
// session of the given duration.
func RateAt(profile models.LoadProfile, target, elapsed, duration float64) float64 {
	progress := 0.0
	if duration > 0 {
		progress = elapsed / duration
	}

	switch profile {
	case models.ProfileRamp:
		return target * progress
	case models.ProfileSpike:
		if progress < 0.5 {
			return target
		}
		return target * 3
	case models.ProfileWave:
		period := duration / 3
		if period <= 0 {
			return target
		}
		phase := math.Mod(elapsed, period) / period
		return target + target*phase
	}
	return target
}
