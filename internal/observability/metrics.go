package observability

import (
	"strconv"
	"sync"
	"time"
)

// Sync counters recorded by the order poller.
const (
	SyncIssued    = "issued"
	SyncSkipped   = "skipped"
	SyncFailed    = "failed"
	SyncApplied   = "applied"
	SyncDiscarded = "discarded"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	syncCount    map[string]int64
	upstreamTime map[string]time.Duration
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Requests map[string]int64 `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Sync     map[string]int64 `json:"sync"`
	// UpstreamAvgMs is the mean latency per upstream path|method key.
	UpstreamAvgMs map[string]float64 `json:"upstream_avg_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		syncCount:    make(map[string]int64),
		upstreamTime: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.upstreamTime[path+"|"+method] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSync increments one of the Sync* counters.
func (m *Metrics) RecordSync(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncCount[outcome]++
}

// SyncCount returns the current value of a Sync* counter.
func (m *Metrics) SyncCount(outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncCount[outcome]
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	out := MetricsSnapshot{
		Requests:      map[string]int64{},
		Errors:        map[string]int64{},
		Sync:          map[string]int64{},
		UpstreamAvgMs: map[string]float64{},
	}
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make(map[string]int64)
	for k, v := range m.requestCount {
		out.Requests[k] = v
		calls[trimStatus(k)] += v
	}
	for k, v := range m.errorCount {
		out.Errors[k] = v
	}
	for k, v := range m.syncCount {
		out.Sync[k] = v
	}
	for k, total := range m.upstreamTime {
		if n := calls[k]; n > 0 {
			out.UpstreamAvgMs[k] = float64(total.Milliseconds()) / float64(n)
		}
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

func trimStatus(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i]
		}
	}
	return key
}
