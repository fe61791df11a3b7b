package refdata

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/countsheet/internal/core"
	"github.com/JonMunkholm/countsheet/internal/logging"
	"github.com/JonMunkholm/countsheet/internal/sheet"
)

// FileLoader reads the reference tables from spreadsheet files.
// StoresPath may be empty; runs then fail at the store filter, the same as
// with a directory that has no name column.
type FileLoader struct {
	CatalogPath string
	StoresPath  string
}

// Load reads both files and builds a Reference.
func (l FileLoader) Load(ctx context.Context) (*core.Reference, error) {
	log := logging.FromContext(ctx)

	catTable, err := sheet.ReadFile(l.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	catalog, dups, err := ParseCatalog(catTable.Rows)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.CatalogPath, err)
	}
	if dups > 0 {
		log.Warn("duplicate UPCs in catalog, first occurrence kept", "path", l.CatalogPath, "duplicates", dups)
	}
	if !catalog.HasBrand() {
		log.Warn("catalog has no brand column", "path", l.CatalogPath)
	}

	var stores *core.StoreDirectory
	if l.StoresPath != "" {
		storeTable, err := sheet.ReadFile(l.StoresPath)
		if err != nil {
			return nil, fmt.Errorf("read store directory: %w", err)
		}
		stores, dups, err = ParseStores(storeTable.Rows)
		if err != nil {
			return nil, fmt.Errorf("store directory %s: %w", l.StoresPath, err)
		}
		if dups > 0 {
			log.Warn("duplicate store codes in directory, first occurrence kept", "path", l.StoresPath, "duplicates", dups)
		}
	}

	return &core.Reference{
		Catalog:  catalog,
		Stores:   stores,
		Source:   "file:" + l.CatalogPath,
		LoadedAt: time.Now(),
	}, nil
}

// referenceLayout finds the header the same way uploads in the auto layout
// do, keyed on the table's join column.
func referenceLayout(specs []core.ColumnSpec, key core.Field) core.Layout {
	return core.Layout{Key: "reference", HeaderRow: core.AutoDetectHeader, Columns: specs, HeaderKey: key}
}

// ParseCatalog builds a Catalog from raw rows. UPCs are normalized like
// inventory UPCs so both sides of the join agree. Rows without a UPC are
// ignored. It returns the number of duplicate UPCs dropped.
func ParseCatalog(rows [][]string) (*core.Catalog, int, error) {
	header, data, err := splitReference(rows, CatalogColumns, "catalog", fieldUPC)
	if err != nil {
		return nil, 0, err
	}
	cols, err := core.ResolveColumns("catalog", header, CatalogColumns)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]core.CatalogEntry, 0, len(data))
	for _, row := range data {
		upc := core.NormalizeUPC(cols.Cell(row, fieldUPC))
		if upc == "" {
			continue
		}
		entries = append(entries, core.CatalogEntry{
			UPC:       upc,
			Brand:     cols.Cell(row, fieldBrand),
			Style:     cols.Cell(row, fieldStyle),
			StyleCode: cols.Cell(row, fieldStyleCode),
			ColorCode: cols.Cell(row, fieldColorCode),
			ColorName: cols.Cell(row, fieldColorName),
		})
	}

	catalog, dups := core.NewCatalog(entries, cols.Has(fieldBrand))
	return catalog, dups, nil
}

// ParseStores builds a StoreDirectory from raw rows.
func ParseStores(rows [][]string) (*core.StoreDirectory, int, error) {
	header, data, err := splitReference(rows, StoreColumns, "store directory", fieldStoreCode)
	if err != nil {
		return nil, 0, err
	}
	cols, err := core.ResolveColumns("store directory", header, StoreColumns)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]core.StoreEntry, 0, len(data))
	for _, row := range data {
		code := cols.Cell(row, fieldStoreCode)
		if code == "" {
			continue
		}
		entries = append(entries, core.StoreEntry{Code: code, Name: cols.Cell(row, fieldStoreName)})
	}

	dir, dups := core.NewStoreDirectory(entries, cols.Has(fieldStoreName))
	return dir, dups, nil
}

// splitReference locates the header. A table whose key column cannot be found
// is a JoinKeyError: it cannot take part in the join at all.
func splitReference(rows [][]string, specs []core.ColumnSpec, table string, key core.Field) ([]string, [][]string, error) {
	header, data, _, err := referenceLayout(specs, key).Split(rows)
	if err != nil {
		return nil, nil, &core.JoinKeyError{Table: table, Column: string(key)}
	}
	return header, data, nil
}
