package migration

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Rendered holds both statements of one migration, or the errors that
// prevented them. Index is the migration's position in the input batch.
type Rendered struct {
	Index     int
	Migration Migration
	Up        string
	Down      string
	UpErr     error
	DownErr   error
}

// Err joins UpErr and DownErr.
func (r Rendered) Err() error {
	return errors.Join(r.UpErr, r.DownErr)
}

// RenderFunc renders one direction of m. Dialects supply their own; the
// default calls m.Up or m.Down.
type RenderFunc func(m Migration, up bool) (string, error)

func renderNeutral(m Migration, up bool) (string, error) {
	if up {
		return m.Up()
	}
	return m.Down()
}

// RenderAll renders every migration in both directions using at most
// workers goroutines (workers <= 0 means one per migration). Results keep
// the input order. Render failures are stored per item; the returned error
// is non-nil only when ctx is cancelled before all items were rendered.
func RenderAll(ctx context.Context, migrations []Migration, workers int) ([]Rendered, error) {
	return RenderAllWith(ctx, migrations, workers, nil)
}

// RenderAllWith is RenderAll with a custom RenderFunc. A nil render uses
// the dialect-neutral statements.
func RenderAllWith(ctx context.Context, migrations []Migration, workers int, render RenderFunc) ([]Rendered, error) {
	if render == nil {
		render = renderNeutral
	}
	out := make([]Rendered, len(migrations))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, m := range migrations {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := Rendered{Index: i, Migration: m}
			r.Up, r.UpErr = render(m, true)
			r.Down, r.DownErr = render(m, false)
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// Errors joins the failures in rendered, each prefixed with the migration's
// position and name. It returns nil when every item rendered cleanly.
func Errors(rendered []Rendered) error {
	var errs []error
	for _, r := range rendered {
		if r.Migration == nil {
			continue
		}
		if r.UpErr != nil {
			errs = append(errs, fmt.Errorf("migration %d (%s): up: %w", r.Index+1, r.Migration.Name(), r.UpErr))
		}
		if r.DownErr != nil {
			errs = append(errs, fmt.Errorf("migration %d (%s): down: %w", r.Index+1, r.Migration.Name(), r.DownErr))
		}
	}
	return errors.Join(errs...)
}
