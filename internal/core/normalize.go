package core

// NormalizeResult is the output of Normalize.
type NormalizeResult struct {
	Records           []InventoryRecord
	InputRows         int // data rows below the header, blank ones included
	BlankRows         int
	WarehouseExcluded int
}

// Normalize turns the raw rows of an inventory upload into typed records.
//
// The layout locates the header; columns are resolved by alias. Rows whose
// warehouse flag differs from rules.InStoreWarehouse are dropped here so the
// join only sees in-store stock. Quantity cells are only parsed for rows that
// survive that filter.
func Normalize(rows [][]string, layout Layout, rules Rules) (*NormalizeResult, error) {
	header, data, firstLine, err := layout.Split(rows)
	if err != nil {
		return nil, err
	}

	cols, err := ResolveColumns("inventory", header, layout.ColumnSpecs())
	if err != nil {
		return nil, err
	}
	qtyHeader := CleanCell(header[cols[FieldQuantity]])

	res := &NormalizeResult{
		Records:   make([]InventoryRecord, 0, len(data)),
		InputRows: len(data),
	}

	for i, row := range data {
		line := firstLine + i
		if isBlankRow(row) {
			res.BlankRows++
			continue
		}

		wh := cols.Cell(row, FieldWarehouse)
		if rules.InStoreWarehouse != "" && wh != rules.InStoreWarehouse {
			res.WarehouseExcluded++
			continue
		}

		rawQty := cols.Cell(row, FieldQuantity)
		qty, err := ParseQuantity(rawQty)
		if err != nil {
			return nil, &FieldValueError{Line: line, Column: qtyHeader, Value: rawQty, Err: err}
		}

		res.Records = append(res.Records, InventoryRecord{
			Line:      line,
			UPC:       NormalizeUPC(cols.Cell(row, FieldUPC)),
			StoreID:   cols.Cell(row, FieldStore),
			Warehouse: wh,
			Available: qty,
			Style:     cols.Cell(row, FieldStyle),
			Size:      NormalizeSize(cols.Cell(row, FieldSize)),
			ColorCode: cols.Cell(row, FieldColorCode),
		})
	}

	return res, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if CleanCell(c) != "" {
			return false
		}
	}
	return true
}
