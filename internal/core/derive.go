package core

// DeriveStats reports what derivation dropped.
type DeriveStats struct {
	BrandExcluded int
	// BrandFilterSkipped is set when the catalog had no brand column, so no
	// exclusion could be applied.
	BrandFilterSkipped bool
	MissingSkipped     int
	// FirstMissing is the first row dropped under the skip policy, for logs.
	FirstMissing *MissingFieldError
}

// Derive drops excluded brands and computes Barcode and StyleColor for the
// remaining records.
//
//	barcode     = styleCode + colorCode
//	style_color = styleName + "-" + colorName
//
// styleCode and styleName come from the catalog and fall back to the
// inventory's own STYLE column; colorCode falls back to the inventory's
// COLOR_CODE. colorName only exists in the catalog. An empty input is a
// *MissingFieldError under MissingFieldsFail, or drops the row under
// MissingFieldsSkip.
func Derive(records []EnrichedRecord, cat *Catalog, rules Rules) ([]EnrichedRecord, DeriveStats, error) {
	var stats DeriveStats
	filterBrands := cat.HasBrand() && len(rules.ExcludedBrands) > 0
	stats.BrandFilterSkipped = !cat.HasBrand() && len(rules.ExcludedBrands) > 0

	out := make([]EnrichedRecord, 0, len(records))
	for _, rec := range records {
		if filterBrands && rules.IsExcludedBrand(rec.Brand()) {
			stats.BrandExcluded++
			continue
		}

		if err := derive(&rec); err != nil {
			if rules.MissingFields == MissingFieldsSkip {
				stats.MissingSkipped++
				if stats.FirstMissing == nil {
					stats.FirstMissing = err
				}
				continue
			}
			return nil, stats, err
		}
		out = append(out, rec)
	}

	return out, stats, nil
}

func derive(rec *EnrichedRecord) *MissingFieldError {
	var styleCode, colorCode, styleName, colorName string
	if c := rec.Catalog; c != nil {
		styleCode = c.StyleCode
		colorCode = c.ColorCode
		styleName = c.Style
		colorName = c.ColorName
	}
	if styleCode == "" {
		styleCode = rec.InventoryRecord.Style
	}
	if colorCode == "" {
		colorCode = rec.InventoryRecord.ColorCode
	}
	if styleName == "" {
		styleName = rec.InventoryRecord.Style
	}

	missing := func(field, input string) *MissingFieldError {
		return &MissingFieldError{Field: field, Input: input, UPC: rec.UPC, Line: rec.Line}
	}
	switch {
	case styleCode == "":
		return missing("barcode", "STYLE M3")
	case colorCode == "":
		return missing("barcode", "Color Code")
	case styleName == "":
		return missing("style_color", "STYLE")
	case colorName == "":
		return missing("style_color", "Color Name")
	}

	rec.Barcode = styleCode + colorCode
	rec.StyleColor = styleName + "-" + colorName
	return nil
}
