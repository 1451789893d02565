package config

import (
	"fmt"
	"strings"
	"time"

	"schemagen/internal/dialect"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config, e.g. "storage.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var knownStorageKinds = map[string]struct{}{
	"postgres": {},
	"sqlite":   {},
	"mssql":    {},
	"mysql":    {},
}

// Validate performs static checks over c without touching the filesystem
// or network. Callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateInput(c)...)
	issues = append(issues, validateOutput(c.Output)...)
	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateInput(c Config) []Issue {
	var issues []Issue

	changes := strings.TrimSpace(c.Changes) != ""
	to := strings.TrimSpace(c.Models.To) != ""
	from := strings.TrimSpace(c.Models.From) != ""

	switch {
	case changes && (to || from):
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "changes",
			Message:  "changes and models.* are mutually exclusive",
		})
	case !changes && !to:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "changes",
			Message:  "either changes or models.to must be set",
		})
	}
	if from && !to {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "models.to",
			Message:  "models.from requires models.to",
		})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue

	if _, err := dialect.Lookup(o.Dialect); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.dialect",
			Message:  err.Error(),
		})
	}
	if o.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.workers",
			Message:  fmt.Sprintf("workers must be >= 0 (got %d)", o.Workers),
		})
	}

	layout := o.TimestampLayout
	if layout == "" {
		return issues
	}
	if strings.ContainsAny(layout, `/\`) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.timestamp_layout",
			Message:  "layout must not contain path separators",
		})
	}
	if time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC).Format(layout) == layout {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.timestamp_layout",
			Message:  fmt.Sprintf("layout %q contains no time fields; file names from separate runs may collide", layout),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		if s.AutoApply {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.auto_apply",
				Message:  "auto_apply requires storage.kind",
			})
		}
		return issues
	}

	if _, ok := knownStorageKinds[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  fmt.Sprintf("storage kind %q requires a non-empty dsn", s.Kind),
		})
	}
	if strings.ContainsAny(s.LedgerTable, " ;\"'`") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.ledger_table",
			Message:  fmt.Sprintf("ledger table %q must be a plain identifier", s.LedgerTable),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "prometheus", "prompush":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, prometheus or datadog)", m.Backend),
		})
	}
	return issues
}
