package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// AutoDetectHeader as a Layout.HeaderRow makes the layout search for the
// header instead of expecting it on a fixed row.
const AutoDetectHeader = -1

// HeaderScanRows bounds the auto-detect search.
const HeaderScanRows = 20

var (
	// ErrUnknownLayout is returned for a layout key nobody registered.
	ErrUnknownLayout = errors.New("unknown input layout")
	// ErrHeaderNotFound is returned when the layout's header row is absent.
	ErrHeaderNotFound = errors.New("header row not found")
)

// Layout describes where the header and data sit in an inventory export.
type Layout struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`

	HeaderRow       int          `json:"-"` // 0-based, or AutoDetectHeader
	SkipAfterHeader int          `json:"-"` // subtotal rows between header and data
	Columns         []ColumnSpec `json:"-"` // nil means InventoryColumns
	// HeaderKey is the column auto-detection looks for; "" means FieldUPC.
	HeaderKey Field `json:"-"`
}

func (l Layout) headerKey() Field {
	if l.HeaderKey == "" {
		return FieldUPC
	}
	return l.HeaderKey
}

// ColumnSpecs returns the layout's columns, defaulting to InventoryColumns.
func (l Layout) ColumnSpecs() []ColumnSpec {
	if len(l.Columns) == 0 {
		return InventoryColumns
	}
	return l.Columns
}

// Split separates rows into the header, the data rows and the 1-based line
// number of the first data row.
func (l Layout) Split(rows [][]string) (header []string, data [][]string, firstLine int, err error) {
	headerRow := l.HeaderRow
	if headerRow == AutoDetectHeader {
		headerRow = l.findHeader(rows)
		if headerRow < 0 {
			spec, _ := columnSpec(l.ColumnSpecs(), l.headerKey())
			return nil, nil, 0, &SchemaError{Table: "inventory", Column: string(l.headerKey()), Aliases: spec.Aliases}
		}
	}
	if headerRow >= len(rows) {
		return nil, nil, 0, fmt.Errorf("%w: layout %q expects it on row %d, file has %d rows",
			ErrHeaderNotFound, l.Key, headerRow+1, len(rows))
	}

	start := headerRow + 1 + l.SkipAfterHeader
	if start > len(rows) {
		start = len(rows)
	}
	return rows[headerRow], rows[start:], start + 1, nil
}

// findHeader returns the first row within HeaderScanRows that names the
// header key column, or -1.
func (l Layout) findHeader(rows [][]string) int {
	spec, ok := columnSpec(l.ColumnSpecs(), l.headerKey())
	if !ok {
		return -1
	}
	limit := min(len(rows), HeaderScanRows)
	for i := 0; i < limit; i++ {
		if HeaderMatches(rows[i], spec) {
			return i
		}
	}
	return -1
}

var (
	registry   = make(map[string]Layout)
	registryMu sync.RWMutex
)

// RegisterLayout adds a layout to the registry.
// Panics if a layout with the same key is already registered.
func RegisterLayout(l Layout) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l.Key == "" {
		panic("layout key is required")
	}
	if _, exists := registry[l.Key]; exists {
		panic(fmt.Sprintf("layout already registered: %s", l.Key))
	}
	registry[l.Key] = l
}

// GetLayout returns a layout by key.
func GetLayout(key string) (Layout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	l, ok := registry[key]
	return l, ok
}

// AllLayouts returns every registered layout sorted by key.
func AllLayouts() []Layout {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Layout, 0, len(registry))
	for _, l := range registry {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// ClearLayouts removes all registered layouts. Tests only.
func ClearLayouts() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Layout)
}
