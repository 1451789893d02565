// Package changeset reads schema changes from change files and derives them
// from two snapshots of a type model. Documents come from any
// datasource.Source, so they may live on disk or behind an HTTP URL.
package changeset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"schemagen/internal/datasource"
	"schemagen/internal/schema"
)

// Format is the encoding of a change or model file.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatFor picks the format from a file extension. Anything that is not
// .json is treated as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

func formatOf(src datasource.Source) Format {
	if e, ok := src.(interface{ Ext() string }); ok {
		return FormatFor("x" + e.Ext())
	}
	return FormatFor(src.Name())
}

// changeFile is the document layout of a change file:
//
//	changes:
//	  - kind: create_table
//	    table: Users
//	    columns:
//	      - {name: id, type: uuid}
type changeFile struct {
	Changes []schema.SchemaChange `json:"changes" yaml:"changes"`
}

// check rejects entries that omit kind; the zero ChangeKind is invalid.
func (f *changeFile) check() error {
	for i, c := range f.Changes {
		if !c.Kind.Valid() {
			return fmt.Errorf("changeset: change %d (table %q): missing kind", i+1, c.TableName)
		}
	}
	return nil
}

// modelFile is the document layout of a model snapshot.
type modelFile struct {
	Tables []schema.Table `json:"tables" yaml:"tables"`
}

// Load reads a change document from src.
func Load(ctx context.Context, src datasource.Source) ([]schema.SchemaChange, error) {
	var doc changeFile
	if err := load(ctx, src, &doc); err != nil {
		return nil, err
	}
	return doc.Changes, nil
}

// Decode reads a change document from r. Unknown keys are rejected.
func Decode(r io.Reader, format Format) ([]schema.SchemaChange, error) {
	var doc changeFile
	if err := decode(r, format, &doc); err != nil {
		return nil, err
	}
	return doc.Changes, nil
}

// LoadTables reads a model snapshot from src.
func LoadTables(ctx context.Context, src datasource.Source) ([]schema.Table, error) {
	var doc modelFile
	if err := load(ctx, src, &doc); err != nil {
		return nil, err
	}
	return doc.Tables, nil
}

// DecodeTables reads a model snapshot document from r.
func DecodeTables(r io.Reader, format Format) ([]schema.Table, error) {
	var doc modelFile
	if err := decode(r, format, &doc); err != nil {
		return nil, err
	}
	return doc.Tables, nil
}

func load(ctx context.Context, src datasource.Source, v any) error {
	rc, err := src.Open(ctx)
	if err != nil {
		return fmt.Errorf("changeset: %w", err)
	}
	defer rc.Close()

	if err := decode(rc, formatOf(src), v); err != nil {
		return fmt.Errorf("%s: %w", src.Name(), err)
	}
	return nil
}

func decode(r io.Reader, format Format, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("changeset: read: %w", err)
	}

	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("changeset: json: %w", err)
		}
	case YAML:
		if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
			return fmt.Errorf("changeset: yaml: %s", yaml.FormatError(err, false, true))
		}
	default:
		return fmt.Errorf("changeset: unknown format %q", format)
	}
	if c, ok := v.(interface{ check() error }); ok {
		return c.check()
	}
	return nil
}
