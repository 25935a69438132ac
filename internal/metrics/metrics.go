// Package metrics decouples the import pipeline from any particular metrics
// vendor. The pipeline records counters and duration samples against the
// package-level backend; the process entry point decides which backend (if
// any) is installed. The default backend discards everything, so
// instrumented code never needs nil checks.
package metrics

import "sync"

// Labels attach low-cardinality dimensions to a metric sample.
type Labels map[string]string

// Backend is the minimal sink interface.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names emitted by the pipeline.
const (
	RowsTotal             = "qmetl_rows_total"              // labels: source
	RecordsTotal          = "qmetl_records_total"           // labels: record_type
	SchemaViolationsTotal = "qmetl_schema_violations_total" // labels: record_type
	RunDurationSeconds    = "qmetl_run_duration_seconds"    // labels: status
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once at startup before
// the pipeline runs.
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

// IncCounter adds delta to a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered metrics out through the installed backend.
func Flush() error {
	return current().Flush()
}
