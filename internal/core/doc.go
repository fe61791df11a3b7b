// Package core builds weekly inventory count proposals.
//
// It holds the whole pipeline, independent of the web layer:
//
//  1. [Normalize] locates the header through an input [Layout], resolves
//     columns by alias and turns rows into [InventoryRecord] values, dropping
//     stock that is not in a store warehouse.
//  2. [Join] left-joins the records against the product [Catalog] and the
//     [StoreDirectory].
//  3. [Derive] drops excluded brands and computes the barcode and style_color
//     of every row.
//  4. [Select] keeps one store (or all), sorts by barcode and takes the
//     sample, either a percentage or everything past a resume token.
//  5. [BuildReports] lays the sample out as pivot, UPC summary and pick-list
//     workbooks.
//
// [Service.Generate] runs these stages for one upload, writes the workbooks
// into a per-run directory and bundles them into a zip archive.
//
// # Layout Registry
//
// Layouts are registered at init time using [RegisterLayout]; the layouts
// subpackage registers the known exports:
//
//	core.RegisterLayout(core.Layout{
//	    Key:             "m3",
//	    Label:           "M3 weekly report",
//	    HeaderRow:       1,
//	    SkipAfterHeader: 1,
//	})
//
// # Error Handling
//
// Each stage fails with a typed error ([SchemaError], [JoinKeyError],
// [MissingFieldError], [NoSuchStoreError], [FieldValueError]) wrapped in a
// [StageError]. [MapError] converts any of them into a [UserMessage] with a
// support code.
package core
