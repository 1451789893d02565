// Command schemagen turns declared schema changes into paired up/down
// migration files and optionally applies them to a database.
//
// Usage:
//
//	schemagen -changes changes.yaml -out migrations -dialect postgres
//	schemagen -from models_v1.yaml -to models_v2.yaml -out migrations
//	schemagen -config schemagen.json -apply up
//	schemagen -config schemagen.json -apply down -steps 1
//
// Every migration that fails validation is reported with its table, column
// and error kind, and the process exits non-zero.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"schemagen/internal/config"
	"schemagen/internal/metrics"
	"schemagen/internal/metrics/datadog"
	"schemagen/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "schemagen/internal/storage/all"
)

func main() {
	var (
		cfgPath     string
		changesPath string
		fromPath    string
		toPath      string
		outDir      string
		dialectName string
		opts        options
		metricsName string
		gatewayURL  string
		validate    bool
		verbose     bool
	)

	flag.StringVar(&cfgPath, "config", "", "config JSON path (optional)")
	flag.StringVar(&changesPath, "changes", "", "change file (YAML or JSON)")
	flag.StringVar(&fromPath, "from", "", "previous model snapshot (diff mode)")
	flag.StringVar(&toPath, "to", "", "current model snapshot (diff mode)")
	flag.StringVar(&outDir, "out", "", "directory for .up.sql/.down.sql files; empty prints to stdout")
	flag.StringVar(&dialectName, "dialect", "", "SQL dialect: ansi, postgres, sqlite, mssql, mysql")
	flag.StringVar(&opts.apply, "apply", "none", "apply mode: none, up, down, status")
	flag.IntVar(&opts.steps, "steps", 1, "migrations to revert with -apply down (0 = all)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "render and report without writing files or touching the database")
	flag.StringVar(&metricsName, "metrics-backend", "", "metrics backend: none, prometheus, datadog (overrides config)")
	flag.StringVar(&gatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides config)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&verbose, "v", false, "enable verbose logs")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	// Flags win over the file and the environment.
	setIf(&cfg.Changes, changesPath)
	setIf(&cfg.Models.From, fromPath)
	setIf(&cfg.Models.To, toPath)
	setIf(&cfg.Output.Dir, outDir)
	setIf(&cfg.Output.Dialect, dialectName)
	setIf(&cfg.Metrics.Backend, metricsName)
	setIf(&cfg.Metrics.PushgatewayURL, gatewayURL)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Errorf("configuration is invalid: %s", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Infof("configuration is valid: %s", cfgPath)
		os.Exit(0)
	}

	if err := setupMetrics(cfg); err != nil {
		log.WithError(err).Warn("metrics: using nop backend")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = run(ctx, cfg, opts, os.Stdout, log.StandardLogger())
	metrics.RecordStep(cfg.Job, "run", err, time.Since(start))
	// os.Exit skips deferred calls.
	if ferr := metrics.Flush(); ferr != nil {
		log.WithError(ferr).Warn("metrics: flush")
	}
	if err != nil {
		if !errors.Is(err, errRenderFailures) {
			log.WithError(err).Error("schemagen failed")
		}
		stop()
		os.Exit(1)
	}
	log.Debugf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

func setupMetrics(cfg config.Config) error {
	switch cfg.Metrics.Backend {
	case "prometheus", "prompush":
		b, err := prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"url": cfg.Metrics.PushgatewayURL, "job": cfg.Job}).Debug("metrics: prometheus pushgateway")
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  "schemagen.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
		if err != nil {
			return err
		}
		log.WithField("addr", cfg.Metrics.DatadogAddr).Debug("metrics: datadog")
		metrics.SetBackend(b)
	default:
		log.Debugf("metrics: disabled (backend=%q)", cfg.Metrics.Backend)
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
