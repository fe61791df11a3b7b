package core

// validation.go resolves the header of an uploaded table into column
// positions and reports what is missing.
//
// Columns are matched case-insensitively against a list of accepted aliases,
// because the same export has carried different header spellings over time
// (AVAILABLE vs STORE_ON_HAND, Size vs SIZE_DESC). Missing required columns
// are a SchemaError; a missing join key is a JoinKeyError, since the row data
// is fine but cannot be linked to the store directory.

import "strings"

// Field is a logical inventory column.
type Field string

const (
	FieldUPC       Field = "UPC"
	FieldQuantity  Field = "AVAILABLE"
	FieldWarehouse Field = "WH"
	FieldStore     Field = "STORE"
	FieldStyle     Field = "STYLE"
	FieldSize      Field = "Size"
	FieldColorCode Field = "COLOR_CODE"
)

// ColumnSpec describes one logical column of an input table.
type ColumnSpec struct {
	Field    Field
	Aliases  []string // accepted header spellings, first is canonical
	Required bool     // absent → SchemaError
	JoinKey  bool     // absent → JoinKeyError
}

// InventoryColumns is the column set of the weekly inventory export.
var InventoryColumns = []ColumnSpec{
	{Field: FieldUPC, Aliases: []string{"UPC"}, Required: true},
	{Field: FieldQuantity, Aliases: []string{"AVAILABLE", "STORE_ON_HAND"}, Required: true},
	{Field: FieldWarehouse, Aliases: []string{"WH"}, Required: true},
	{Field: FieldStore, Aliases: []string{"STORE"}, JoinKey: true},
	{Field: FieldStyle, Aliases: []string{"STYLE", "STYLE_INV"}},
	{Field: FieldSize, Aliases: []string{"Size", "SIZE_DESC", "TALLA"}},
	{Field: FieldColorCode, Aliases: []string{"COLOR_CODE", "Color Code"}},
}

// ColumnMap maps resolved logical fields to column positions.
type ColumnMap map[Field]int

// Cell returns the cleaned value of field f in row, or "" when the column is
// absent or the row is short.
func (m ColumnMap) Cell(row []string, f Field) string {
	pos, ok := m[f]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// Has reports whether field f was found in the header.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// ResolveColumns matches header against specs. The first missing required
// column yields a *SchemaError, then the first missing join key a
// *JoinKeyError. Optional columns are simply left out of the map.
func ResolveColumns(table string, header []string, specs []ColumnSpec) (ColumnMap, error) {
	idx := MakeHeaderIndex(header)
	cols := make(ColumnMap, len(specs))

	for _, spec := range specs {
		if pos, ok := lookupAlias(idx, spec.Aliases); ok {
			cols[spec.Field] = pos
		}
	}

	for _, spec := range specs {
		if spec.Required && !cols.Has(spec.Field) {
			return nil, &SchemaError{Table: table, Column: string(spec.Field), Aliases: spec.Aliases}
		}
	}
	for _, spec := range specs {
		if spec.JoinKey && !cols.Has(spec.Field) {
			return nil, &JoinKeyError{Table: table, Column: string(spec.Field)}
		}
	}

	return cols, nil
}

// HeaderMatches reports whether row contains any alias of spec.
func HeaderMatches(row []string, spec ColumnSpec) bool {
	_, ok := lookupAlias(MakeHeaderIndex(row), spec.Aliases)
	return ok
}

func lookupAlias(idx HeaderIndex, aliases []string) (int, bool) {
	for _, a := range aliases {
		if pos, ok := idx[strings.ToLower(a)]; ok {
			return pos, true
		}
	}
	return 0, false
}

// columnSpec returns the spec for f from specs.
func columnSpec(specs []ColumnSpec, f Field) (ColumnSpec, bool) {
	for _, s := range specs {
		if s.Field == f {
			return s, true
		}
	}
	return ColumnSpec{}, false
}
