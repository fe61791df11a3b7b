package core

// errors.go defines the pipeline's error taxonomy.
//
// Each type answers one question a user would ask after a failed run:
//   - SchemaError: which required column is missing from my upload?
//   - FieldValueError: which cell could not be read?
//   - JoinKeyError: which table lacks the column it is joined on?
//   - MissingFieldError: which item has no style/color to build a barcode from?
//   - NoSuchStoreError: the data has no store-name field to filter on.
//
// PackagingError lives in the bundle package. Every error leaving the
// pipeline is wrapped in a StageError naming the stage it came from.

import (
	"errors"
	"fmt"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageRead      Stage = "read"
	StageNormalize Stage = "normalize"
	StageJoin      Stage = "join"
	StageDerive    Stage = "derive"
	StageSelect    Stage = "select"
	StageReport    Stage = "report"
	StagePackage   Stage = "package"
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// stageErr wraps err unless it is nil.
func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// SchemaError reports a required column absent from an input table.
type SchemaError struct {
	Table   string
	Column  string
	Aliases []string
}

func (e *SchemaError) Error() string {
	if len(e.Aliases) > 1 {
		return fmt.Sprintf("missing required column %q in %s (accepted headers: %q)", e.Column, e.Table, e.Aliases)
	}
	return fmt.Sprintf("missing required column %q in %s", e.Column, e.Table)
}

// FieldValueError reports a cell that cannot be interpreted.
type FieldValueError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FieldValueError) Error() string {
	return fmt.Sprintf("invalid value in column %q at row %d: %q: %v", e.Column, e.Line, e.Value, e.Err)
}

func (e *FieldValueError) Unwrap() error { return e.Err }

// JoinKeyError reports a table that lacks the key column it is joined on.
// An unmatched key value is not an error.
type JoinKeyError struct {
	Table  string
	Column string
}

func (e *JoinKeyError) Error() string {
	return fmt.Sprintf("join key column %q missing from %s", e.Column, e.Table)
}

// MissingFieldError reports a derived field whose inputs are empty after the
// join, typically a UPC with no catalog entry.
type MissingFieldError struct {
	Field string // derived field: "barcode" or "style_color"
	Input string // the empty dependency
	UPC   string
	Line  int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q needed for %s (UPC %q, row %d): no catalog match or empty value",
		e.Input, e.Field, e.UPC, e.Line)
}

// NoSuchStoreError reports that the store display-name field does not exist
// in the joined data, so there is nothing to filter or group by. A store
// that simply has no rows is not an error.
type NoSuchStoreError struct {
	Store string
}

func (e *NoSuchStoreError) Error() string {
	if e.Store == "" {
		return "store name field not available: the store directory has no name column"
	}
	return fmt.Sprintf("cannot select store %q: store name field not available", e.Store)
}

// ErrNoReference is returned when a run starts before reference data loaded.
var ErrNoReference = errors.New("reference data not loaded")
