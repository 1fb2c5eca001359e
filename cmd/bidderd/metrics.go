// metrics.go - Metrics collection for the bidder daemon
package main

import (
	"sync"
	"time"
)

// MetricsCollector tracks protocol operation counts and latencies.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
	started    time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
		started:    time.Now(),
	}
}

// IncrementCounter increments a counter metric
func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name]++
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.gauges[name] = value
}

// RecordHistogram records a value in a histogram
func (mc *MetricsCollector) RecordHistogram(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	values := append(mc.histograms[name], value)
	// Keep only the last 1000 samples
	if len(values) > 1000 {
		values = values[len(values)-1000:]
	}
	mc.histograms[name] = values
}

// Summary returns a point-in-time view of all metrics
func (mc *MetricsCollector) Summary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	counters := make(map[string]int64, len(mc.counters))
	for k, v := range mc.counters {
		counters[k] = v
	}
	gauges := make(map[string]float64, len(mc.gauges))
	for k, v := range mc.gauges {
		gauges[k] = v
	}

	histograms := make(map[string]map[string]float64, len(mc.histograms))
	for key, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
			"sum":   0,
		}
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			h["sum"] += v
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[key] = h
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(mc.started).Seconds(),
		"counters":       counters,
		"gauges":         gauges,
		"histograms":     histograms,
	}
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters = make(map[string]int64)
	mc.gauges = make(map[string]float64)
	mc.histograms = make(map[string][]float64)
}

// Predefined metric names
const (
	MetricLotsCreated         = "lots_created"
	MetricCommitCount         = "commit_count"
	MetricRevealCount         = "reveal_count"
	MetricFinalizeCount       = "finalize_count"
	MetricProofCount          = "proof_count"
	MetricProofGenerationTime = "proof_generation_time"
	MetricOpenLots            = "open_lots"
	MetricErrorCount          = "error_count"
	MetricRateLimited         = "rate_limited"
)

// Convenience methods for common metrics
func (mc *MetricsCollector) RecordCommit()   { mc.IncrementCounter(MetricCommitCount) }
func (mc *MetricsCollector) RecordReveal()   { mc.IncrementCounter(MetricRevealCount) }
func (mc *MetricsCollector) RecordFinalize() { mc.IncrementCounter(MetricFinalizeCount) }

func (mc *MetricsCollector) RecordProofGeneration(d time.Duration) {
	mc.IncrementCounter(MetricProofCount)
	mc.RecordHistogram(MetricProofGenerationTime, d.Seconds())
}

func (mc *MetricsCollector) RecordError(kind string) {
	mc.IncrementCounter(MetricErrorCount + "_" + kind)
}
