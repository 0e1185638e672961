package analytics

import (
	"sync"
	"time"

	"whale-screener/internal/observability"
)

// Credit cost per endpoint, charged only on successful calls.
var endpointCosts = map[string]int{
	EndpointLeaderboard:     5,
	EndpointWalletPositions: 1,
	EndpointTokenPositions:  5,
	EndpointTokenScreener:   1,
}

// maxCallHistory bounds the in-memory call log.
const maxCallHistory = 512

// CallRecord is one logged API call.
type CallRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Endpoint     string    `json:"endpoint"`
	Cost         int       `json:"cost"`
	Success      bool      `json:"success"`
	ResponseTime float64   `json:"response_time_ms"`
}

// UsageSummary aggregates tracked API spend.
type UsageSummary struct {
	TotalCreditsUsed  int     `json:"total_credits_used"`
	TotalCalls        int     `json:"total_calls"`
	SuccessfulCalls   int     `json:"successful_calls"`
	FailedCalls       int     `json:"failed_calls"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
}

// UsageTracker accounts for API credits across calls. Safe for concurrent
// use; the call history is bounded, dropping oldest entries first.
type UsageTracker struct {
	mu           sync.Mutex
	totalCredits int
	totalCalls   int
	successCalls int
	totalTimeMS  float64
	history      []CallRecord
}

// NewUsageTracker returns an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// LogCall records one API call. Credits are charged only on success;
// unknown endpoints cost one credit.
func (t *UsageTracker) LogCall(endpoint string, success bool, responseTime time.Duration) {
	cost, ok := endpointCosts[endpoint]
	if !ok {
		cost = 1
	}
	ms := float64(responseTime.Microseconds()) / 1000

	credits := 0
	if success {
		credits = cost
	}
	observability.RecordAnalyticsCall(endpoint, success, responseTime.Seconds(), credits)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalCalls++
	t.totalTimeMS += ms
	rec := CallRecord{
		Timestamp:    time.Now().UTC(),
		Endpoint:     endpoint,
		Success:      success,
		ResponseTime: ms,
	}
	if success {
		t.totalCredits += cost
		t.successCalls++
		rec.Cost = cost
	}

	t.history = append(t.history, rec)
	if len(t.history) > maxCallHistory {
		t.history = t.history[len(t.history)-maxCallHistory:]
	}
}

// Summary returns the aggregate view.
func (t *UsageTracker) Summary() UsageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	avg := 0.0
	if t.totalCalls > 0 {
		avg = t.totalTimeMS / float64(t.totalCalls)
	}
	return UsageSummary{
		TotalCreditsUsed:  t.totalCredits,
		TotalCalls:        t.totalCalls,
		SuccessfulCalls:   t.successCalls,
		FailedCalls:       t.totalCalls - t.successCalls,
		AvgResponseTimeMS: avg,
	}
}

// History returns a copy of the bounded call log, oldest first.
func (t *UsageTracker) History() []CallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CallRecord, len(t.history))
	copy(out, t.history)
	return out
}

// Reset clears all counters and history.
func (t *UsageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalCredits = 0
	t.totalCalls = 0
	t.successCalls = 0
	t.totalTimeMS = 0
	t.history = nil
}
