package core

import (
	"sort"
	"time"
)

// InventoryRecord is one (store, UPC) stock observation from the weekly
// upload, after normalization.
type InventoryRecord struct {
	Line      int    // 1-based row number in the uploaded sheet
	UPC       string // canonical: no ".0" artifact, no Excel wrapper
	StoreID   string
	Warehouse string
	Available int // never negative
	Style     string
	Size      string
	ColorCode string // only some exports carry it
}

// CatalogEntry is the product reference for one UPC.
type CatalogEntry struct {
	UPC       string
	Brand     string
	Style     string // style name used for display
	StyleCode string // merchandising style code used in the barcode
	ColorCode string
	ColorName string
}

// StoreEntry maps an internal store code to its display name.
type StoreEntry struct {
	Code string
	Name string
}

// EnrichedRecord is an InventoryRecord after both left joins and derivation.
// A nil Catalog or Store means the join found no match.
type EnrichedRecord struct {
	InventoryRecord
	Catalog *CatalogEntry
	Store   *StoreEntry

	Barcode    string
	StyleColor string

	// StoreGroup is the store name the selector filtered and grouped by;
	// unmatched rows carry the configured unassigned label.
	StoreGroup string
}

// Brand returns the catalog brand, or "" when the row has no catalog match.
func (r EnrichedRecord) Brand() string {
	if r.Catalog == nil {
		return ""
	}
	return r.Catalog.Brand
}

// StoreName returns the display name from the store directory, or "" when
// the row's store code is not in the directory.
func (r EnrichedRecord) StoreName() string {
	if r.Store == nil {
		return ""
	}
	return r.Store.Name
}

// Catalog is an immutable UPC-keyed product table.
// Build it once with NewCatalog and share it freely between requests.
type Catalog struct {
	entries  map[string]CatalogEntry
	hasBrand bool
}

// NewCatalog copies entries into a lookup table. The first entry for a UPC
// wins; the number of ignored duplicates is returned so loaders can warn.
// hasBrand records whether the source had a brand column at all.
func NewCatalog(entries []CatalogEntry, hasBrand bool) (*Catalog, int) {
	c := &Catalog{
		entries:  make(map[string]CatalogEntry, len(entries)),
		hasBrand: hasBrand,
	}
	dups := 0
	for _, e := range entries {
		if _, exists := c.entries[e.UPC]; exists {
			dups++
			continue
		}
		c.entries[e.UPC] = e
	}
	return c, dups
}

// Lookup returns a copy of the entry for upc.
func (c *Catalog) Lookup(upc string) (CatalogEntry, bool) {
	if c == nil {
		return CatalogEntry{}, false
	}
	e, ok := c.entries[upc]
	return e, ok
}

// Len returns the number of distinct UPCs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// HasBrand reports whether the catalog source had a brand column.
func (c *Catalog) HasBrand() bool {
	return c != nil && c.hasBrand
}

// StoreDirectory is an immutable store-code-keyed table of display names.
type StoreDirectory struct {
	byCode  map[string]StoreEntry
	hasName bool
}

// NewStoreDirectory copies entries into a lookup table; first code wins.
// hasName records whether the source had a display-name column.
func NewStoreDirectory(entries []StoreEntry, hasName bool) (*StoreDirectory, int) {
	d := &StoreDirectory{
		byCode:  make(map[string]StoreEntry, len(entries)),
		hasName: hasName,
	}
	dups := 0
	for _, e := range entries {
		if _, exists := d.byCode[e.Code]; exists {
			dups++
			continue
		}
		d.byCode[e.Code] = e
	}
	return d, dups
}

// Lookup returns the entry for a store code.
func (d *StoreDirectory) Lookup(code string) (StoreEntry, bool) {
	if d == nil {
		return StoreEntry{}, false
	}
	e, ok := d.byCode[code]
	return e, ok
}

// Len returns the number of stores.
func (d *StoreDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byCode)
}

// HasName reports whether store display names are available.
func (d *StoreDirectory) HasName() bool {
	return d != nil && d.hasName
}

// Names returns the distinct non-empty display names, sorted.
func (d *StoreDirectory) Names() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]bool, len(d.byCode))
	names := make([]string, 0, len(d.byCode))
	for _, e := range d.byCode {
		if e.Name == "" || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Reference bundles the read-only tables a run joins against.
type Reference struct {
	Catalog  *Catalog
	Stores   *StoreDirectory
	Source   string // where it was loaded from, for logs and /healthz
	LoadedAt time.Time
}

// CursorMode selects how a resume token restricts the sample.
type CursorMode string

const (
	// CursorAfter keeps rows whose barcode sorts strictly after the token.
	CursorAfter CursorMode = "after"
	// CursorExact keeps only rows whose barcode equals the token.
	CursorExact CursorMode = "exact"
)

// Valid reports whether m is a known cursor mode.
func (m CursorMode) Valid() bool {
	return m == CursorAfter || m == CursorExact
}

// ArtifactKind classifies generated files.
type ArtifactKind string

const (
	ArtifactPivot      ArtifactKind = "pivot"
	ArtifactUPCSummary ArtifactKind = "upc_summary"
	ArtifactUPCList    ArtifactKind = "upc_list"
	ArtifactArchive    ArtifactKind = "archive"
)

// Artifact is a file produced by a run.
type Artifact struct {
	Kind ArtifactKind
	Name string // base file name, also the archive entry name
	Path string
}

// RunStats counts rows as they pass through each stage.
type RunStats struct {
	InputRows         int `json:"input_rows"`
	BlankRows         int `json:"blank_rows"`
	WarehouseExcluded int `json:"warehouse_excluded"`
	Joined            int `json:"joined"`
	CatalogMisses     int `json:"catalog_misses"`
	StoreMisses       int `json:"store_misses"`
	MissingSkipped    int `json:"missing_skipped"`
	BrandExcluded     int `json:"brand_excluded"`
	StoreRows         int `json:"store_rows"`
	Sampled           int `json:"sampled"`
	Stores            int `json:"stores"`
}
