package core

// JoinStats counts unmatched keys on each side of the join.
type JoinStats struct {
	CatalogMisses int
	StoreMisses   int
}

// Join left-joins records against the catalog on UPC and then against the
// store directory on store code. Every input record yields exactly one output
// record, in the same order; a key with no match leaves that side nil.
//
// A nil catalog is a *JoinKeyError. A nil store directory is accepted and
// behaves like a directory with no rows.
func Join(records []InventoryRecord, ref *Reference) ([]EnrichedRecord, JoinStats, error) {
	var stats JoinStats
	if ref == nil || ref.Catalog == nil {
		return nil, stats, &JoinKeyError{Table: "catalog", Column: string(FieldUPC)}
	}

	out := make([]EnrichedRecord, len(records))
	for i, rec := range records {
		out[i].InventoryRecord = rec

		if entry, ok := ref.Catalog.Lookup(rec.UPC); ok {
			out[i].Catalog = &entry
		} else {
			stats.CatalogMisses++
		}

		if store, ok := ref.Stores.Lookup(rec.StoreID); ok {
			out[i].Store = &store
		} else {
			stats.StoreMisses++
		}
	}

	return out, stats, nil
}
