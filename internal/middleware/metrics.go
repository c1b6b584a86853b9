package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics. It also receives analysis
// processing events.
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64

	AnalysesStarted   atomic.Uint64
	AnalysesRunning   atomic.Int64
	AnalysesCompleted atomic.Uint64
	AnalysesFailed    atomic.Uint64
	AnalysesCancelled atomic.Uint64
	processingNanos   atomic.Int64

	StartTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) ProcessingStarted() {
	m.AnalysesStarted.Add(1)
	m.AnalysesRunning.Add(1)
}

func (m *Metrics) ProcessingCompleted(d time.Duration) {
	m.AnalysesRunning.Add(-1)
	m.AnalysesCompleted.Add(1)
	m.processingNanos.Add(int64(d))
}

func (m *Metrics) ProcessingFailed() {
	m.AnalysesRunning.Add(-1)
	m.AnalysesFailed.Add(1)
}

func (m *Metrics) ProcessingCancelled() {
	m.AnalysesRunning.Add(-1)
	m.AnalysesCancelled.Add(1)
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	completed := m.AnalysesCompleted.Load()
	avg := 0.0
	if completed > 0 {
		avg = time.Duration(m.processingNanos.Load() / int64(completed)).Seconds()
	}

	return map[string]interface{}{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"analyses_started":     m.AnalysesStarted.Load(),
		"analyses_running":     m.AnalysesRunning.Load(),
		"analyses_completed":   completed,
		"analyses_failed":      m.AnalysesFailed.Load(),
		"analyses_cancelled":   m.AnalysesCancelled.Load(),
		"avg_processing_secs":  avg,
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		// Track success/failure based on status code
		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
