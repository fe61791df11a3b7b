package core

// report.go shapes the sample into the spreadsheets store staff count from.
//
// Three reports exist:
//   - pivot: one row per (store, barcode, style_color, brand), one column per size
//   - UPC summary: quantity per distinct UPC
//   - UPC pick-list: the distinct UPCs in sample order, for handheld scanners
//
// In multi-store mode the pivot and summary get one sheet per store.

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/countsheet/internal/sheet"
)

// Pivot headers are the labels store staff already know from the manual
// process.
const (
	HeaderStore      = "Tienda"
	HeaderBarcode    = "BARCODE"
	HeaderStyleColor = "EstiloColor"
	HeaderBrand      = "Brand"
	HeaderUPC        = "UPC"
	HeaderAvailable  = "AVAILABLE"
)

// NoSizeLabel is the pivot column for rows without a size.
const NoSizeLabel = "SIN TALLA"

// PivotKey identifies one pivot row.
type PivotKey struct {
	Store      string
	Barcode    string
	StyleColor string
	Brand      string
}

func (k PivotKey) less(o PivotKey) bool {
	if k.Store != o.Store {
		return k.Store < o.Store
	}
	if k.Barcode != o.Barcode {
		return k.Barcode < o.Barcode
	}
	if k.StyleColor != o.StyleColor {
		return k.StyleColor < o.StyleColor
	}
	return k.Brand < o.Brand
}

// PivotRow holds the summed quantity per size for one key. Quantities is
// aligned with PivotTable.Sizes.
type PivotRow struct {
	PivotKey
	Quantities []int
}

// Total returns the sum of the row's size cells.
func (r PivotRow) Total() int {
	t := 0
	for _, q := range r.Quantities {
		t = addQuantity(t, q)
	}
	return t
}

// addQuantity sums two non-negative quantities, saturating at math.MaxInt.
func addQuantity(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// PivotTable is a size-by-item quantity matrix.
type PivotTable struct {
	Sizes []string // normalized size labels, in column order
	Rows  []PivotRow
}

// Header returns the sheet header, with sizePrefix in front of all-digit
// size labels. A size label that collides with an earlier column gets a
// " (2)", " (3)" suffix.
func (p PivotTable) Header(sizePrefix string) []string {
	h := []string{HeaderStore, HeaderBarcode, HeaderStyleColor, HeaderBrand}
	seen := make(map[string]bool, len(h)+len(p.Sizes))
	for _, c := range h {
		seen[c] = true
	}
	for _, s := range p.Sizes {
		label := SizeColumn(s, sizePrefix)
		candidate := label
		for k := 2; seen[candidate]; k++ {
			candidate = label + " (" + strconv.Itoa(k) + ")"
		}
		seen[candidate] = true
		h = append(h, candidate)
	}
	return h
}

// SizeColumn returns the column label for a size.
func SizeColumn(size, prefix string) string {
	switch {
	case size == "":
		return NoSizeLabel
	case IsDigits(size):
		return prefix + size
	default:
		return size
	}
}

// BuildPivot sums Available by pivot key and size.
func BuildPivot(rows []EnrichedRecord) PivotTable {
	sizeSet := make(map[string]bool)
	sums := make(map[PivotKey]map[string]int)
	for _, r := range rows {
		k := PivotKey{Store: r.StoreGroup, Barcode: r.Barcode, StyleColor: r.StyleColor, Brand: r.Brand()}
		if sums[k] == nil {
			sums[k] = make(map[string]int)
		}
		sums[k][r.Size] = addQuantity(sums[k][r.Size], r.Available)
		sizeSet[r.Size] = true
	}

	sizes := make([]string, 0, len(sizeSet))
	for s := range sizeSet {
		sizes = append(sizes, s)
	}
	SortSizes(sizes)

	keys := make([]PivotKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	table := PivotTable{Sizes: sizes, Rows: make([]PivotRow, len(keys))}
	for i, k := range keys {
		q := make([]int, len(sizes))
		for j, s := range sizes {
			q[j] = sums[k][s]
		}
		table.Rows[i] = PivotRow{PivotKey: k, Quantities: q}
	}
	return table
}

// SortSizes orders sizes numerically first ("6", "6.5", "10"), then the rest
// lexicographically, with the empty size last.
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		a, b := sizes[i], sizes[j]
		if (a == "") != (b == "") {
			return b == ""
		}
		da, errA := decimal.NewFromString(a)
		db, errB := decimal.NewFromString(b)
		switch {
		case errA == nil && errB == nil:
			if c := da.Cmp(db); c != 0 {
				return c < 0
			}
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return a < b
		}
	})
}

// UPCQuantity is one line of the UPC summary.
type UPCQuantity struct {
	UPC       string
	Available int
}

// SummarizeUPCs sums Available per UPC, sorted by UPC.
func SummarizeUPCs(rows []EnrichedRecord) []UPCQuantity {
	sums := make(map[string]int)
	for _, r := range rows {
		sums[r.UPC] = addQuantity(sums[r.UPC], r.Available)
	}
	out := make([]UPCQuantity, 0, len(sums))
	for upc, n := range sums {
		out = append(out, UPCQuantity{UPC: upc, Available: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UPC < out[j].UPC })
	return out
}

// PickList returns the distinct UPCs in sample order.
func PickList(rows []EnrichedRecord) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, r := range rows {
		if seen[r.UPC] {
			continue
		}
		seen[r.UPC] = true
		out = append(out, r.UPC)
	}
	return out
}

// StoreRows is the sample rows of one store.
type StoreRows struct {
	Store string
	Rows  []EnrichedRecord
}

// GroupByStore splits rows by StoreGroup, stores sorted by name. Row order
// within a store is preserved.
func GroupByStore(rows []EnrichedRecord) []StoreRows {
	idx := make(map[string]int)
	var groups []StoreRows
	for _, r := range rows {
		i, ok := idx[r.StoreGroup]
		if !ok {
			i = len(groups)
			idx[r.StoreGroup] = i
			groups = append(groups, StoreRows{Store: r.StoreGroup})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Store < groups[j].Store })
	return groups
}

// ReportOptions controls report naming and content.
type ReportOptions struct {
	Store      string // empty for multi-store mode
	Date       string // already formatted, e.g. "18-10-2026"
	SizePrefix string
	PickList   bool
}

// Report is one workbook to write.
type Report struct {
	Kind     ArtifactKind
	Workbook sheet.Workbook
}

// BuildReports lays the sample out as workbooks. An empty sample still yields
// every workbook, with headers only.
func BuildReports(sample []EnrichedRecord, opts ReportOptions) []Report {
	if opts.Store != "" {
		return singleStoreReports(sample, opts)
	}
	return multiStoreReports(sample, opts)
}

// ArchiveName returns the zip file name for a run.
func ArchiveName(opts ReportOptions) string {
	if opts.Store != "" {
		return fmt.Sprintf("Propuesta_%s_%s.zip", SafeFileComponent(opts.Store), opts.Date)
	}
	return fmt.Sprintf("PropuestaConteo_%s.zip", opts.Date)
}

func singleStoreReports(sample []EnrichedRecord, opts ReportOptions) []Report {
	store := SafeFileComponent(opts.Store)
	sheetName := sheet.SanitizeSheetName(opts.Store)

	reports := []Report{
		{
			Kind: ArtifactPivot,
			Workbook: sheet.Workbook{
				FileName: fmt.Sprintf("Propuesta_%s_%s.xlsx", store, opts.Date),
				Sheets:   []sheet.Sheet{pivotSheet(sheetName, sample, opts.SizePrefix)},
			},
		},
		{
			Kind: ArtifactUPCSummary,
			Workbook: sheet.Workbook{
				FileName: fmt.Sprintf("UPC_Cantidades_%s_%s.xlsx", store, opts.Date),
				Sheets:   []sheet.Sheet{summarySheet(sheetName, sample)},
			},
		},
	}
	if opts.PickList {
		reports = append(reports, Report{
			Kind: ArtifactUPCList,
			Workbook: sheet.Workbook{
				FileName: fmt.Sprintf("Lista_UPC_%s_%s.xlsx", store, opts.Date),
				Sheets:   []sheet.Sheet{pickListSheet(sheetName, sample)},
			},
		})
	}
	return reports
}

func multiStoreReports(sample []EnrichedRecord, opts ReportOptions) []Report {
	groups := GroupByStore(sample)

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Store
	}
	names = sheet.UniqueSheetNames(names)

	pivots := make([]sheet.Sheet, len(groups))
	summaries := make([]sheet.Sheet, len(groups))
	for i, g := range groups {
		pivots[i] = pivotSheet(names[i], g.Rows, opts.SizePrefix)
		summaries[i] = summarySheet(names[i], g.Rows)
	}
	if len(groups) == 0 {
		pivots = []sheet.Sheet{pivotSheet("Propuesta", nil, opts.SizePrefix)}
		summaries = []sheet.Sheet{summarySheet("Propuesta", nil)}
	}

	reports := []Report{
		{
			Kind: ArtifactPivot,
			Workbook: sheet.Workbook{
				FileName: fmt.Sprintf("PropuestaConteo_PorTienda_%s.xlsx", opts.Date),
				Sheets:   pivots,
			},
		},
		{
			Kind: ArtifactUPCSummary,
			Workbook: sheet.Workbook{
				FileName: fmt.Sprintf("Lista_UPC_PorTienda_ConCantidades_%s.xlsx", opts.Date),
				Sheets:   summaries,
			},
		},
	}
	if opts.PickList {
		reports = append(reports, Report{
			Kind: ArtifactUPCList,
			Workbook: sheet.Workbook{
				FileName: fmt.Sprintf("Lista_UPC_Propuesta_%s.xlsx", opts.Date),
				Sheets:   []sheet.Sheet{pickListSheet("UPC", sample)},
			},
		})
	}
	return reports
}

func pivotSheet(name string, rows []EnrichedRecord, sizePrefix string) sheet.Sheet {
	p := BuildPivot(rows)
	out := sheet.Sheet{Name: name, Header: p.Header(sizePrefix), Rows: make([][]any, len(p.Rows))}
	for i, r := range p.Rows {
		cells := make([]any, 0, 4+len(r.Quantities))
		cells = append(cells, r.Store, r.Barcode, r.StyleColor, r.Brand)
		for _, q := range r.Quantities {
			cells = append(cells, q)
		}
		out.Rows[i] = cells
	}
	return out
}

func summarySheet(name string, rows []EnrichedRecord) sheet.Sheet {
	sum := SummarizeUPCs(rows)
	out := sheet.Sheet{Name: name, Header: []string{HeaderUPC, HeaderAvailable}, Rows: make([][]any, len(sum))}
	for i, s := range sum {
		out.Rows[i] = []any{s.UPC, s.Available}
	}
	return out
}

func pickListSheet(name string, rows []EnrichedRecord) sheet.Sheet {
	upcs := PickList(rows)
	out := sheet.Sheet{Name: name, Header: []string{HeaderUPC}, Rows: make([][]any, len(upcs))}
	for i, u := range upcs {
		out.Rows[i] = []any{u}
	}
	return out
}

// SafeFileComponent makes a store name usable inside a file name.
func SafeFileComponent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
