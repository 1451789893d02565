package migration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorKind classifies why a migration could not be rendered.
type ErrorKind int

const (
	MissingTableName ErrorKind = iota + 1
	EmptyColumns
	EmptyColumnName
	ReservedKeyword
	UnsupportedColumnType
)

func (k ErrorKind) String() string {
	switch k {
	case MissingTableName:
		return "missing table name"
	case EmptyColumns:
		return "empty columns"
	case EmptyColumnName:
		return "empty column name"
	case ReservedKeyword:
		return "reserved keyword"
	case UnsupportedColumnType:
		return "unsupported column type"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Label is the snake_case form of the kind, used as a metric label.
func (k ErrorKind) Label() string {
	return strings.ReplaceAll(k.String(), " ", "_")
}

// ValidationError is returned by every render operation in this package.
// Table and Column name the offending identifiers when they are known.
type ValidationError struct {
	Kind   ErrorKind
	Table  string
	Column string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("migration: %s: table %q column %q", e.Kind, e.Table, e.Column)
	case e.Table != "":
		return fmt.Sprintf("migration: %s: table %q", e.Kind, e.Table)
	case e.Column != "":
		return fmt.Sprintf("migration: %s: column %q", e.Kind, e.Column)
	default:
		return "migration: " + e.Kind.String()
	}
}

// Is matches any *ValidationError of the same Kind, so the sentinels below
// work with errors.Is regardless of the identifiers carried.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingTableName      = &ValidationError{Kind: MissingTableName}
	ErrEmptyColumns          = &ValidationError{Kind: EmptyColumns}
	ErrEmptyColumnName       = &ValidationError{Kind: EmptyColumnName}
	ErrReservedKeyword       = &ValidationError{Kind: ReservedKeyword}
	ErrUnsupportedColumnType = &ValidationError{Kind: UnsupportedColumnType}
)

// KindOf returns the ErrorKind carried by err, or 0 when err is not a
// ValidationError.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}
