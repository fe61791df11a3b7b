// Package refdata loads the product catalog and the store directory that
// weekly uploads are joined against.
//
// Two sources exist: a pair of spreadsheet files maintained by merchandising
// (the historical setup) and PostgreSQL tables. Either way the result is an
// immutable [core.Reference] that a [Holder] hands out and swaps on reload.
package refdata

import "github.com/JonMunkholm/countsheet/internal/core"

// Logical columns of the reference spreadsheets.
const (
	fieldUPC       core.Field = "UPC"
	fieldBrand     core.Field = "Brand"
	fieldStyle     core.Field = "STYLE"
	fieldStyleCode core.Field = "STYLE M3"
	fieldColorCode core.Field = "Color Code"
	fieldColorName core.Field = "Color Name"

	fieldStoreCode core.Field = "STORE"
	fieldStoreName core.Field = "Tienda"
)

// CatalogColumns is the column set of the product catalog ("TABLA UPC").
var CatalogColumns = []core.ColumnSpec{
	{Field: fieldUPC, Aliases: []string{"UPC"}, JoinKey: true},
	{Field: fieldBrand, Aliases: []string{"Brand", "Marca"}},
	{Field: fieldStyle, Aliases: []string{"STYLE", "STYLE_NAME", "Estilo"}},
	{Field: fieldStyleCode, Aliases: []string{"STYLE M3", "STYLE_M3"}},
	{Field: fieldColorCode, Aliases: []string{"Color Code", "COLOR_CODE"}},
	{Field: fieldColorName, Aliases: []string{"Color Name", "COLOR_NAME"}},
}

// StoreColumns is the column set of the store directory ("Tiendas M3").
var StoreColumns = []core.ColumnSpec{
	{Field: fieldStoreCode, Aliases: []string{"STORE"}, JoinKey: true},
	{Field: fieldStoreName, Aliases: []string{"Tienda", "STORE_NAME"}},
}
