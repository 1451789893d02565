// Package metrics records operational metrics from migration rendering and
// application behind a small, pluggable Backend.
//
// The default backend is a no-op, so every Record* helper is safe to call
// whether or not a real backend (Prometheus Pushgateway, Datadog) has been
// installed with SetBackend. Concrete metric systems live in subpackages.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal         = "schemagen_step_total"
	StepDuration      = "schemagen_step_duration_seconds"
	MigrationsTotal   = "schemagen_migrations_total"
	RenderErrorsTotal = "schemagen_render_errors_total"
)

// Migration statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// RecordStep counts one execution of a named step (render, write, apply,
// revert, ...) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status(err),
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordMigration counts one migration outcome. kind is the migration kind
// ("create_table", "add_column"); status is one of the Status* constants.
func RecordMigration(kind, status string) {
	backend.IncCounter(MigrationsTotal, 1, Labels{
		"kind":   kind,
		"status": status,
	})
}

// RecordRenderError counts one validation failure by error kind, e.g.
// "reserved_keyword".
func RecordRenderError(kind string) {
	if kind == "" {
		return
	}
	backend.IncCounter(RenderErrorsTotal, 1, Labels{"error": kind})
}
