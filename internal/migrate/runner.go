// Package migrate applies and reverts migrations against a storage
// backend and tracks them in the backend's ledger.
//
// Each migration is identified by its 1-based position and name, e.g.
// "002_AddAgeToUsers". The ledger stores a checksum of the forward
// statement that was executed; when the freshly rendered statement no
// longer matches, the run stops with ErrDrift instead of building on a
// schema that differs from what the migrations describe.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"schemagen/internal/dialect"
	"schemagen/internal/metrics"
	"schemagen/internal/migration"
	"schemagen/internal/storage"
)

var (
	// ErrDrift is returned when an applied migration no longer renders to
	// the statement recorded in the ledger.
	ErrDrift = errors.New("migrate: checksum drift")
	// ErrUnknownApplied is returned by Down when the ledger holds a
	// migration that is not part of the given batch.
	ErrUnknownApplied = errors.New("migrate: applied migration not in batch")
)

// Checksum is the hex xxh3 hash of a statement.
func Checksum(stmt string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(stmt))
}

// LedgerName is the ledger key of the migration at index i.
func LedgerName(i int, m migration.Migration) string {
	return fmt.Sprintf("%03d_%s", i+1, m.Name())
}

// Runner applies migrations through Repo.
type Runner struct {
	Repo storage.Repository

	// Dialect renders statements; when nil it is looked up from
	// Repo.Dialect().
	Dialect dialect.Dialect

	// Job labels metrics.
	Job string
	Log log.FieldLogger
	Now func() time.Time
}

// Status describes one migration relative to the ledger.
type Status struct {
	Seq       int
	Name      string
	Applied   bool
	AppliedAt time.Time
	// Drift is set when the migration is applied but its checksum differs.
	Drift bool
	// Err holds a render failure of the forward statement.
	Err error
}

type plan struct {
	index    int
	name     string
	m        migration.Migration
	up       string
	checksum string
	applied  *storage.LedgerEntry
}

func (r *Runner) logger() log.FieldLogger {
	if r.Log == nil {
		return log.StandardLogger()
	}
	return r.Log
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) dialect() (dialect.Dialect, error) {
	if r.Dialect != nil {
		return r.Dialect, nil
	}
	return dialect.Lookup(r.Repo.Dialect())
}

// inspect renders every forward statement and matches it against the
// ledger. The first render failure is returned as a *renderError.
func (r *Runner) inspect(ctx context.Context, ms []migration.Migration) ([]plan, []storage.LedgerEntry, error) {
	d, err := r.dialect()
	if err != nil {
		return nil, nil, err
	}
	if err := r.Repo.EnsureLedger(ctx); err != nil {
		return nil, nil, err
	}
	applied, err := r.Repo.Applied(ctx)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]*storage.LedgerEntry, len(applied))
	for i := range applied {
		byName[applied[i].Name] = &applied[i]
	}

	plans := make([]plan, len(ms))
	for i, m := range ms {
		p := plan{index: i, name: LedgerName(i, m), m: m}
		up, err := dialect.Render(d, m, true)
		if err != nil {
			return nil, nil, &renderError{plan: p, err: err}
		}
		p.up = up
		p.checksum = Checksum(up)
		p.applied = byName[p.name]
		plans[i] = p
	}
	return plans, applied, nil
}

type renderError struct {
	plan plan
	err  error
}

func (e *renderError) Error() string {
	return fmt.Sprintf("migrate: render %s: %v", e.plan.name, e.err)
}

func (e *renderError) Unwrap() error { return e.err }

// RenderErrorLabel names err for the render error metric, or returns ""
// when err is neither a validation error nor a dialect naming error.
func RenderErrorLabel(err error) string {
	if k := migration.KindOf(err); k != 0 {
		return k.Label()
	}
	if errors.Is(err, dialect.ErrEmptyNameSegment) {
		return "empty_name_segment"
	}
	return ""
}

func recordRenderError(err error) {
	metrics.RecordRenderError(RenderErrorLabel(err))
}

// Up applies, in order, every migration that is not yet in the ledger and
// returns how many were applied. Nothing is executed when any migration
// fails to render or an applied migration has drifted.
func (r *Runner) Up(ctx context.Context, ms []migration.Migration) (int, error) {
	plans, applied, err := r.inspect(ctx, ms)
	if err != nil {
		var re *renderError
		if errors.As(err, &re) {
			recordRenderError(re.err)
		}
		return 0, err
	}

	known := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		known[p.name] = struct{}{}
		if p.applied != nil && p.applied.Checksum != p.checksum {
			return 0, fmt.Errorf("%w: %s recorded %s, rendered %s", ErrDrift, p.name, p.applied.Checksum, p.checksum)
		}
	}
	for _, e := range applied {
		if _, ok := known[e.Name]; !ok {
			r.logger().WithField("migration", e.Name).Warn("ledger holds a migration that is not in this batch")
		}
	}

	n := 0
	for _, p := range plans {
		kind := migration.ChangeKindOf(p.m).String()
		entry := r.logger().WithFields(log.Fields{
			"migration": p.name,
			"direction": "up",
		})
		if p.applied != nil {
			metrics.RecordMigration(kind, metrics.StatusSkipped)
			entry.Debug("already applied")
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}

		start := time.Now()
		err := r.Repo.Apply(ctx, p.up, storage.LedgerEntry{
			Seq:       p.index + 1,
			Name:      p.name,
			Checksum:  p.checksum,
			AppliedAt: r.now(),
		})
		metrics.RecordStep(r.Job, "apply", err, time.Since(start))
		if err != nil {
			metrics.RecordMigration(kind, metrics.StatusFailure)
			entry.WithError(err).Error("apply failed")
			return n, err
		}
		metrics.RecordMigration(kind, metrics.StatusSuccess)
		entry.Info("applied")
		n++
	}
	return n, nil
}

// Down reverts the most recently applied migrations, newest first, and
// returns how many were reverted. steps <= 0 reverts all of them.
func (r *Runner) Down(ctx context.Context, ms []migration.Migration, steps int) (int, error) {
	d, err := r.dialect()
	if err != nil {
		return 0, err
	}
	if err := r.Repo.EnsureLedger(ctx); err != nil {
		return 0, err
	}
	applied, err := r.Repo.Applied(ctx)
	if err != nil {
		return 0, err
	}

	byName := make(map[string]migration.Migration, len(ms))
	for i, m := range ms {
		byName[LedgerName(i, m)] = m
	}

	if steps <= 0 || steps > len(applied) {
		steps = len(applied)
	}
	targets := applied[len(applied)-steps:]

	n := 0
	for i := len(targets) - 1; i >= 0; i-- {
		e := targets[i]
		entry := r.logger().WithFields(log.Fields{
			"migration": e.Name,
			"direction": "down",
		})
		m, ok := byName[e.Name]
		if !ok {
			return n, fmt.Errorf("%w: %s", ErrUnknownApplied, e.Name)
		}
		down, err := dialect.Render(d, m, false)
		if err != nil {
			recordRenderError(err)
			return n, fmt.Errorf("migrate: render %s: %w", e.Name, err)
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}

		kind := migration.ChangeKindOf(m).String()
		start := time.Now()
		err = r.Repo.Revert(ctx, down, e.Name)
		metrics.RecordStep(r.Job, "revert", err, time.Since(start))
		if err != nil {
			metrics.RecordMigration(kind, metrics.StatusFailure)
			entry.WithError(err).Error("revert failed")
			return n, err
		}
		metrics.RecordMigration(kind, metrics.StatusSuccess)
		entry.Info("reverted")
		n++
	}
	return n, nil
}

// Status reports every migration of the batch against the ledger. A render
// failure does not abort the report; it is stored on the item.
func (r *Runner) Status(ctx context.Context, ms []migration.Migration) ([]Status, error) {
	d, err := r.dialect()
	if err != nil {
		return nil, err
	}
	if err := r.Repo.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	applied, err := r.Repo.Applied(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]storage.LedgerEntry, len(applied))
	for _, e := range applied {
		byName[e.Name] = e
	}

	out := make([]Status, len(ms))
	for i, m := range ms {
		s := Status{Seq: i + 1, Name: LedgerName(i, m)}
		up, err := dialect.Render(d, m, true)
		s.Err = err
		if e, ok := byName[s.Name]; ok {
			s.Applied = true
			s.AppliedAt = e.AppliedAt
			s.Drift = err == nil && e.Checksum != Checksum(up)
		}
		out[i] = s
	}
	return out, nil
}
