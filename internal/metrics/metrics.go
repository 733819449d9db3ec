// Package metrics is a small backend-agnostic facade for pipeline metrics.
//
// Stages call the package-level helpers; the active Backend is swapped in once
// at process start (datadog) or left as the no-op default.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions such as step or status.
type Labels map[string]string

// Backend receives counters and histogram observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names understood by backends.
const (
	StepTotal           = "etl_step_total"
	StepDurationSeconds = "etl_step_duration_seconds"
	RecordsTotal        = "etl_records_total"
	BatchesTotal        = "etl_batches_total"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the active backend. nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample for the named histogram.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush asks the active backend to submit buffered data.
func Flush() error {
	return current().Flush()
}

// RecordStep records the outcome and duration of a pipeline step.
func RecordStep(step string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, time.Since(start).Seconds(), l)
}

// AddRecords adds n to the records counter of the given kind
// (e.g. "ratings_read", "ratings_duplicates", "ratings_remapped").
func AddRecords(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}

// AddBatch counts one insert statement batch against table. mode is "bulk"
// or "row_by_row".
func AddBatch(table, mode string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	IncCounter(BatchesTotal, 1, Labels{"table": table, "mode": mode, "status": status})
}
