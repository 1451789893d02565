// Package writer persists rendered migrations as paired .up.sql/.down.sql
// files.
package writer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"schemagen/internal/migration"
)

// DefaultLayout is the time.Format layout of the file name prefix.
const DefaultLayout = "20060102_150405"

// Writer writes one file pair per migration into Dir:
//
//	{timestamp}_{position:03d}_{Name}.up.sql
//	{timestamp}_{position:03d}_{Name}.down.sql
//
// position is 1-based. All files of one Write call share a timestamp.
type Writer struct {
	Dir    string
	Layout string

	// StopOnError stops at the first migration that failed to render.
	// Otherwise failed items are skipped and reported in the Result.
	StopOnError bool

	// DryRun logs what would be written without touching the filesystem.
	DryRun bool

	// Now defaults to time.Now.
	Now func() time.Time
	Log log.FieldLogger
}

// File is one written migration.
type File struct {
	Index    int
	Name     string
	UpPath   string
	DownPath string
}

// Result summarises a Write call.
type Result struct {
	Written []File
	// Skipped holds the items that failed to render, in input order.
	Skipped []migration.Rendered
}

// Err joins the render failures of the skipped items.
func (r Result) Err() error {
	return migration.Errors(r.Skipped)
}

func (w *Writer) logger() log.FieldLogger {
	if w.Log == nil {
		return log.StandardLogger()
	}
	return w.Log
}

// FileBase returns the shared name stem of a migration's files.
func FileBase(stamp string, index int, name string) string {
	return fmt.Sprintf("%s_%03d_%s", stamp, index+1, name)
}

// Write persists every cleanly rendered item. The returned error is set
// for filesystem failures, cancellation, or the first render failure when
// StopOnError is true; render failures are otherwise only in Result.
func (w *Writer) Write(ctx context.Context, rendered []migration.Rendered) (Result, error) {
	var res Result

	if w.Dir == "" {
		return res, errors.New("writer: output directory is required")
	}
	layout := w.Layout
	if layout == "" {
		layout = DefaultLayout
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	stamp := now().Format(layout)

	if !w.DryRun {
		if err := os.MkdirAll(w.Dir, 0o755); err != nil {
			return res, fmt.Errorf("writer: create %s: %w", w.Dir, err)
		}
	}

	for _, r := range rendered {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.Migration == nil {
			continue
		}
		entry := w.logger().WithFields(log.Fields{
			"migration": r.Migration.Name(),
			"position":  r.Index + 1,
		})

		if err := r.Err(); err != nil {
			res.Skipped = append(res.Skipped, r)
			entry.WithError(err).Warn("skipping migration that failed to render")
			if w.StopOnError {
				return res, fmt.Errorf("writer: migration %d (%s): %w", r.Index+1, r.Migration.Name(), err)
			}
			continue
		}

		base := FileBase(stamp, r.Index, r.Migration.Name())
		f := File{
			Index:    r.Index,
			Name:     r.Migration.Name(),
			UpPath:   filepath.Join(w.Dir, base+".up.sql"),
			DownPath: filepath.Join(w.Dir, base+".down.sql"),
		}
		if w.DryRun {
			entry.WithField("file", f.UpPath).Info("dry run: would write migration")
			res.Written = append(res.Written, f)
			continue
		}
		if err := writeFile(f.UpPath, r.Up); err != nil {
			return res, err
		}
		if err := writeFile(f.DownPath, r.Down); err != nil {
			return res, err
		}
		entry.WithField("file", f.UpPath).Debug("wrote migration")
		res.Written = append(res.Written, f)
	}
	return res, nil
}

func writeFile(path, stmt string) error {
	if err := os.WriteFile(path, []byte(stmt+"\n"), 0o644); err != nil {
		return fmt.Errorf("writer: %w", err)
	}
	return nil
}
