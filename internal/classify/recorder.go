package classify

import (
	"sync"
	"time"
)

// Recorder is the aggregate metrics store for the classification core. It is
// the only shared mutable state in the core: every mutation and every
// multi-field read happens under one mutex so snapshots are never torn.
// Counters are monotonic for the process lifetime.
type Recorder struct {
	mu          sync.Mutex
	start       time.Time
	total       int64
	errors      int64
	byMethod    map[Method]int64
	totalTimeMs float64
}

// NewRecorder returns a Recorder with every method bucket present at zero and
// the uptime clock started.
func NewRecorder() *Recorder {
	byMethod := make(map[Method]int64, len(Methods))
	for _, m := range Methods {
		byMethod[m] = 0
	}
	return &Recorder{
		start:    time.Now(),
		byMethod: byMethod,
	}
}

// Record registers one classification. When isError is true the error
// pseudo-bucket is incremented instead of the method bucket and the elapsed
// time is not accumulated, so error latencies never skew the average.
func (r *Recorder) Record(method Method, elapsedMs float64, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	if isError {
		r.errors++
		r.byMethod[MethodError]++
		return
	}
	r.byMethod[method]++
	r.totalTimeMs += elapsedMs
}

// Snapshot is an immutable aggregate view of the recorder.
type Snapshot struct {
	Total         int64            `json:"total_classifications"`
	ByMethod      map[Method]int64 `json:"classifications_by_method"`
	AvgLatencyMs  float64          `json:"average_processing_time_ms"`
	ErrorRate     float64          `json:"error_rate"`
	Errors        int64            `json:"total_errors"`
	UptimeSeconds float64          `json:"uptime_seconds"`
}

// Snapshot computes the derived views under the same critical section as
// mutation. Average latency counts successful records only and both derived
// ratios return 0 before any qualifying record exists.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	byMethod := make(map[Method]int64, len(r.byMethod))
	for m, n := range r.byMethod {
		byMethod[m] = n
	}

	var avg float64
	if ok := r.total - r.errors; ok > 0 {
		avg = r.totalTimeMs / float64(ok)
	}

	var errRate float64
	if r.total > 0 {
		errRate = float64(r.errors) / float64(r.total)
	}

	return Snapshot{
		Total:         r.total,
		ByMethod:      byMethod,
		AvgLatencyMs:  avg,
		ErrorRate:     errRate,
		Errors:        r.errors,
		UptimeSeconds: time.Since(r.start).Seconds(),
	}
}
