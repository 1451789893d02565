// Package config defines the JSON-serializable configuration of a schemagen
// run and the environment overlay applied on top of it.
//
// A config file is optional; every field can also be set from the
// environment with the SCHEMAGEN_ prefix, and command-line flags override
// both. Example:
//
//	{
//	  "job": "nightly",
//	  "changes": "migrations/changes.yaml",
//	  "output":  { "dir": "migrations/sql", "dialect": "postgres" },
//	  "storage": { "kind": "postgres", "dsn": "postgres://...", "auto_apply": true },
//	  "metrics": { "backend": "prometheus", "pushgateway_url": "http://pushgateway:9091" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "SCHEMAGEN_"

// DefaultTimestampLayout names migration files like 20240131_235959_...
const DefaultTimestampLayout = "20060102_150405"

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job" env:"JOB"`

	// Changes is the path of a YAML or JSON change file.
	Changes string `json:"changes" env:"CHANGES"`

	// Models selects diff mode: changes are extracted from two table
	// snapshots instead of being read from Changes.
	Models Models `json:"models" envPrefix:"MODELS_"`

	Output  Output  `json:"output" envPrefix:"OUTPUT_"`
	Storage Storage `json:"storage" envPrefix:"STORAGE_"`
	Metrics Metrics `json:"metrics" envPrefix:"METRICS_"`
}

// Models holds the snapshot paths for diff mode. From may be empty, in
// which case every table in To is new.
type Models struct {
	From string `json:"from" env:"FROM"`
	To   string `json:"to" env:"TO"`
}

// Output controls rendering and migration files.
type Output struct {
	// Dir receives the .up.sql/.down.sql files. Empty disables writing.
	Dir string `json:"dir" env:"DIR"`

	// Dialect selects identifier quoting and type names ("ansi" by default).
	Dialect string `json:"dialect" env:"DIALECT"`

	// TimestampLayout is a time.Format layout prefixed to each file name.
	TimestampLayout string `json:"timestamp_layout" env:"TIMESTAMP_LAYOUT"`

	// Workers bounds concurrent rendering; 0 means one goroutine per migration.
	Workers int `json:"workers" env:"WORKERS"`

	// StopOnError stops writing at the first migration that fails to render.
	StopOnError bool `json:"stop_on_error" env:"STOP_ON_ERROR"`
}

// Storage selects the database migrations are applied to.
type Storage struct {
	Kind        string `json:"kind" env:"KIND"`
	DSN         string `json:"dsn" env:"DSN"`
	LedgerTable string `json:"ledger_table" env:"LEDGER_TABLE"`

	// AutoApply runs pending migrations after writing them.
	AutoApply bool `json:"auto_apply" env:"AUTO_APPLY"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "", "none", "prometheus" or "datadog".
	Backend        string `json:"backend" env:"BACKEND"`
	PushgatewayURL string `json:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	DatadogAddr    string `json:"datadog_addr" env:"DATADOG_ADDR"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Job: "schemagen",
		Output: Output{
			Dialect:         "ansi",
			TimestampLayout: DefaultTimestampLayout,
		},
	}
}

// Decode reads a JSON config over the defaults. Unknown fields are
// rejected so typos surface instead of being silently ignored.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Load reads the config file at path, or the defaults when path is empty,
// and then applies the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = Decode(data); err != nil {
			return Config{}, err
		}
	}
	if err := FromEnv(&cfg, nil); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv overlays SCHEMAGEN_* variables onto cfg. Unset variables leave
// the corresponding field unchanged. When environ is nil the process
// environment is used.
func FromEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}
