package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"schemagen/internal/changeset"
	"schemagen/internal/config"
	"schemagen/internal/datasource"
	"schemagen/internal/dialect"
	"schemagen/internal/metrics"
	"schemagen/internal/migrate"
	"schemagen/internal/migration"
	"schemagen/internal/schema"
	"schemagen/internal/storage"
	"schemagen/internal/writer"
)

// errRenderFailures is returned after every failure has been logged.
var errRenderFailures = errors.New("one or more migrations failed validation")

type options struct {
	apply  string
	steps  int
	dryRun bool
	now    func() time.Time
}

// run executes one schemagen invocation: load changes, render, report,
// write, and optionally apply.
func run(ctx context.Context, cfg config.Config, opts options, stdout io.Writer, logger log.FieldLogger) error {
	changes, err := loadChanges(ctx, cfg)
	if err != nil {
		return err
	}
	ms := migration.Generate(changes)
	logger.WithField("count", len(ms)).Debug("generated migrations")

	d, err := dialect.Lookup(cfg.Output.Dialect)
	if err != nil {
		return err
	}

	start := time.Now()
	rendered, err := migration.RenderAllWith(ctx, ms, cfg.Output.Workers, dialect.RenderFunc(d))
	failed := reportFailures(rendered, logger)
	metrics.RecordStep(cfg.Job, "render", err, time.Since(start))
	if err != nil {
		return err
	}

	if cfg.Output.Dir != "" {
		w := &writer.Writer{
			Dir:         cfg.Output.Dir,
			Layout:      cfg.Output.TimestampLayout,
			StopOnError: cfg.Output.StopOnError,
			DryRun:      opts.dryRun,
			Now:         opts.now,
			Log:         logger,
		}
		start := time.Now()
		res, err := w.Write(ctx, rendered)
		metrics.RecordStep(cfg.Job, "write", err, time.Since(start))
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{
			"dir":     cfg.Output.Dir,
			"written": len(res.Written),
			"skipped": len(res.Skipped),
		}).Info("migrations written")
	} else if opts.apply == "none" || opts.apply == "" {
		printStatements(stdout, rendered)
	}

	mode := opts.apply
	if (mode == "" || mode == "none") && cfg.Storage.AutoApply {
		mode = "up"
	}
	if err := applyMode(ctx, cfg, opts, mode, ms, stdout, logger); err != nil {
		return err
	}

	if failed > 0 {
		return errRenderFailures
	}
	return nil
}

func loadChanges(ctx context.Context, cfg config.Config) ([]schema.SchemaChange, error) {
	if cfg.Changes != "" {
		return changeset.Load(ctx, datasource.For(cfg.Changes, nil))
	}
	if cfg.Models.To == "" {
		return nil, errors.New("no input: set changes or models.to")
	}
	current, err := changeset.LoadTables(ctx, datasource.For(cfg.Models.To, nil))
	if err != nil {
		return nil, err
	}
	var previous []schema.Table
	if cfg.Models.From != "" {
		if previous, err = changeset.LoadTables(ctx, datasource.For(cfg.Models.From, nil)); err != nil {
			return nil, err
		}
	}
	return changeset.Extract(previous, current), nil
}

// reportFailures logs one line per failed direction and returns the number
// of migrations with at least one failure.
func reportFailures(rendered []migration.Rendered, logger log.FieldLogger) int {
	failed := 0
	for _, r := range rendered {
		if r.Migration == nil || r.Err() == nil {
			continue
		}
		failed++
		metrics.RecordMigration(migration.ChangeKindOf(r.Migration).String(), metrics.StatusFailure)
		for _, dir := range []struct {
			name string
			err  error
		}{{"up", r.UpErr}, {"down", r.DownErr}} {
			if dir.err == nil {
				continue
			}
			fields := log.Fields{
				"position":  r.Index + 1,
				"migration": r.Migration.Name(),
				"direction": dir.name,
			}
			if label := migrate.RenderErrorLabel(dir.err); label != "" {
				fields["kind"] = label
				metrics.RecordRenderError(label)
			}
			var ve *migration.ValidationError
			if errors.As(dir.err, &ve) {
				fields["table"] = ve.Table
				if ve.Column != "" {
					fields["column"] = ve.Column
				}
			}
			logger.WithFields(fields).Error(dir.err.Error())
		}
	}
	return failed
}

func printStatements(w io.Writer, rendered []migration.Rendered) {
	for _, r := range rendered {
		if r.Migration == nil || r.Err() != nil {
			continue
		}
		fmt.Fprintf(w, "-- %03d %s\n-- up\n%s\n-- down\n%s\n\n", r.Index+1, r.Migration.Name(), r.Up, r.Down)
	}
}

func applyMode(ctx context.Context, cfg config.Config, opts options, mode string, ms []migration.Migration, stdout io.Writer, logger log.FieldLogger) error {
	switch mode {
	case "", "none":
		return nil
	case "up", "down", "status":
	default:
		return fmt.Errorf("unknown apply mode %q (want none, up, down, status)", mode)
	}
	if cfg.Storage.Kind == "" {
		return fmt.Errorf("apply %s: storage.kind is not configured", mode)
	}
	if opts.dryRun && mode != "status" {
		logger.WithField("mode", mode).Info("dry run: reporting status instead")
		mode = "status"
	}

	repo, err := storage.New(ctx, storage.Config{
		Kind:        cfg.Storage.Kind,
		DSN:         cfg.Storage.DSN,
		LedgerTable: cfg.Storage.LedgerTable,
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	r := &migrate.Runner{Repo: repo, Job: cfg.Job, Log: logger, Now: opts.now}

	switch mode {
	case "up":
		n, err := r.Up(ctx, ms)
		logger.WithField("applied", n).Info("up complete")
		return err
	case "down":
		n, err := r.Down(ctx, ms, opts.steps)
		logger.WithField("reverted", n).Info("down complete")
		return err
	default:
		status, err := r.Status(ctx, ms)
		if err != nil {
			return err
		}
		printStatus(stdout, status)
		return nil
	}
}

func printStatus(w io.Writer, status []migrate.Status) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tMIGRATION\tSTATE\tAPPLIED AT")
	for _, s := range status {
		state := "pending"
		switch {
		case s.Err != nil:
			state = "invalid"
		case s.Drift:
			state = "drift"
		case s.Applied:
			state = "applied"
		}
		at := ""
		if s.Applied {
			at = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Seq, s.Name, state, at)
	}
	_ = tw.Flush()
}
