// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A migration run is a short-lived batch job, so collectors are kept in a
// private registry and pushed to a Pushgateway on Flush instead of being
// exposed on a scrape endpoint. The Pushgateway "job" grouping key carries
// the job label; the remaining labels map onto CounterVec/SummaryVec labels.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"schemagen/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // schemagen_step_total
	stepDuration *prometheus.SummaryVec // schemagen_step_duration_seconds
	migrations   *prometheus.CounterVec // schemagen_migrations_total
	renderErrors *prometheus.CounterVec // schemagen_render_errors_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name; defaults to "schemagen".
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "schemagen"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Total number of schemagen step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of schemagen steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	migrations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.MigrationsTotal,
			Help: "Migrations processed, partitioned by change kind and outcome.",
		},
		[]string{"kind", "status"},
	)
	renderErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RenderErrorsTotal,
			Help: "Migrations that failed validation, partitioned by error kind.",
		},
		[]string{"error"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":  stepCounter,
		"step summary":  stepDuration,
		"migrations":    migrations,
		"render errors": renderErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		migrations:   migrations,
		renderErrors: renderErrors,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.MigrationsTotal:
		if b.migrations == nil {
			return
		}
		b.migrations.WithLabelValues(labels["kind"], labels["status"]).Add(delta)

	case metrics.RenderErrorsTotal:
		if b.renderErrors == nil {
			return
		}
		b.renderErrors.WithLabelValues(labels["error"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
