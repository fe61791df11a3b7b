package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sized(store, barcode, upc, size string, qty int) EnrichedRecord {
	r := withBarcode(store, barcode, upc, qty)
	r.StoreGroup = store
	r.Size = size
	return r
}

func TestSortSizes(t *testing.T) {
	sizes := []string{"M", "10", "", "6.5", "S", "6", "XL", "24"}
	SortSizes(sizes)
	assert.Equal(t, []string{"6", "6.5", "10", "24", "M", "S", "XL", ""}, sizes)
}

func TestSizeColumn(t *testing.T) {
	assert.Equal(t, "Talla24", SizeColumn("24", "Talla"))
	assert.Equal(t, "6.5", SizeColumn("6.5", "Talla"))
	assert.Equal(t, "M", SizeColumn("M", "Talla"))
	assert.Equal(t, NoSizeLabel, SizeColumn("", "Talla"))
}

func TestPivotHeader_DistinctLabels(t *testing.T) {
	p := PivotTable{Sizes: []string{"7", "Talla7", "SIN TALLA", "Tienda", ""}}

	h := p.Header("Talla")

	assert.Equal(t, []string{
		"Tienda", "BARCODE", "EstiloColor", "Brand",
		"Talla7", "Talla7 (2)", "SIN TALLA", "Tienda (2)", "SIN TALLA (2)",
	}, h)
}

func TestBuildPivot(t *testing.T) {
	rows := []EnrichedRecord{
		sized("Centro", "B01", "1", "24", 2),
		sized("Centro", "A01", "2", "25", 1),
		sized("Centro", "A01", "3", "24", 4),
		sized("Centro", "A01", "4", "24", 3),
	}

	p := BuildPivot(rows)

	assert.Equal(t, []string{"24", "25"}, p.Sizes)
	assert.Equal(t, []string{"Tienda", "BARCODE", "EstiloColor", "Brand", "Talla24", "Talla25"}, p.Header("Talla"))
	require.Len(t, p.Rows, 2)

	assert.Equal(t, "A01", p.Rows[0].Barcode)
	assert.Equal(t, []int{7, 1}, p.Rows[0].Quantities)
	assert.Equal(t, "B01", p.Rows[1].Barcode)
	assert.Equal(t, []int{2, 0}, p.Rows[1].Quantities, "absent size is zero")
}

func TestBuildPivot_RowSumMatchesSample(t *testing.T) {
	rows := []EnrichedRecord{
		sized("Centro", "A01", "1", "24", 2),
		sized("Centro", "A01", "2", "M", 5),
		sized("Centro", "A01", "3", "", 1),
		sized("Centro", "C01", "4", "24", 9),
	}
	want := map[string]int{}
	for _, r := range rows {
		want[r.Barcode] += r.Available
	}

	for _, row := range BuildPivot(rows).Rows {
		assert.Equal(t, want[row.Barcode], row.Total(), row.Barcode)
		for _, q := range row.Quantities {
			assert.GreaterOrEqual(t, q, 0)
		}
	}
}

func TestSummarizeUPCs(t *testing.T) {
	rows := []EnrichedRecord{
		sized("Centro", "A", "222", "1", 3),
		sized("Centro", "B", "111", "1", 1),
		sized("Centro", "C", "222", "2", 4),
	}
	assert.Equal(t, []UPCQuantity{{"111", 1}, {"222", 7}}, SummarizeUPCs(rows))
	assert.Equal(t, []string{"222", "111"}, PickList(rows))
}

func TestSummarizeUPCs_Saturates(t *testing.T) {
	rows := []EnrichedRecord{
		sized("Centro", "A", "111", "1", math.MaxInt),
		sized("Centro", "A", "111", "2", 1),
	}

	got := SummarizeUPCs(rows)
	require.Len(t, got, 1)
	assert.Equal(t, math.MaxInt, got[0].Available)

	p := BuildPivot(rows)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, math.MaxInt, p.Rows[0].Total())
	for _, q := range p.Rows[0].Quantities {
		assert.GreaterOrEqual(t, q, 0)
	}
}

func TestGroupByStore(t *testing.T) {
	rows := []EnrichedRecord{
		sized("Norte", "A", "1", "1", 1),
		sized("Centro", "B", "2", "1", 1),
		sized("Norte", "C", "3", "1", 1),
	}
	groups := GroupByStore(rows)
	require.Len(t, groups, 2)
	assert.Equal(t, "Centro", groups[0].Store)
	assert.Equal(t, "Norte", groups[1].Store)
	assert.Equal(t, "C", groups[1].Rows[1].Barcode)
}

func TestBuildReports_SingleStore(t *testing.T) {
	rows := []EnrichedRecord{sized("Plaza/Sur", "A01", "111", "24", 3)}
	opts := ReportOptions{Store: "Plaza/Sur", Date: "18-10-2026", SizePrefix: "Talla", PickList: true}

	reports := BuildReports(rows, opts)

	require.Len(t, reports, 3)
	assert.Equal(t, ArtifactPivot, reports[0].Kind)
	assert.Equal(t, "Propuesta_Plaza_Sur_18-10-2026.xlsx", reports[0].Workbook.FileName)
	assert.Equal(t, "Plaza_Sur", reports[0].Workbook.Sheets[0].Name)
	assert.Equal(t, []any{"Plaza/Sur", "A01", "A01-NEGRO", "ACME", 3}, reports[0].Workbook.Sheets[0].Rows[0])

	assert.Equal(t, "UPC_Cantidades_Plaza_Sur_18-10-2026.xlsx", reports[1].Workbook.FileName)
	assert.Equal(t, []string{"UPC", "AVAILABLE"}, reports[1].Workbook.Sheets[0].Header)

	assert.Equal(t, ArtifactUPCList, reports[2].Kind)
	assert.Equal(t, "Lista_UPC_Plaza_Sur_18-10-2026.xlsx", reports[2].Workbook.FileName)

	assert.Equal(t, "Propuesta_Plaza_Sur_18-10-2026.zip", ArchiveName(opts))
}

func TestBuildReports_MultiStore(t *testing.T) {
	rows := []EnrichedRecord{
		sized("Norte", "A01", "111", "24", 3),
		sized("Centro", "B01", "222", "25", 1),
	}
	opts := ReportOptions{Date: "18-10-2026", SizePrefix: "Talla"}

	reports := BuildReports(rows, opts)

	require.Len(t, reports, 2, "no pick-list unless asked")
	pivot := reports[0].Workbook
	assert.Equal(t, "PropuestaConteo_PorTienda_18-10-2026.xlsx", pivot.FileName)
	require.Len(t, pivot.Sheets, 2)
	assert.Equal(t, "Centro", pivot.Sheets[0].Name)
	assert.Equal(t, []string{"Tienda", "BARCODE", "EstiloColor", "Brand", "Talla25"}, pivot.Sheets[0].Header,
		"each sheet only has its own sizes")

	assert.Equal(t, "Lista_UPC_PorTienda_ConCantidades_18-10-2026.xlsx", reports[1].Workbook.FileName)
	assert.Equal(t, "PropuestaConteo_18-10-2026.zip", ArchiveName(opts))
}

func TestBuildReports_EmptySample(t *testing.T) {
	for _, store := range []string{"Centro", ""} {
		reports := BuildReports(nil, ReportOptions{Store: store, Date: "d", SizePrefix: "Talla", PickList: true})
		require.Len(t, reports, 3)
		for _, r := range reports {
			require.NotEmpty(t, r.Workbook.Sheets, r.Workbook.FileName)
			assert.Empty(t, r.Workbook.Sheets[0].Rows)
			assert.NotEmpty(t, r.Workbook.Sheets[0].Header)
		}
	}
}

func TestSafeFileComponent(t *testing.T) {
	assert.Equal(t, "Plaza Sur", SafeFileComponent(" Plaza Sur "))
	assert.Equal(t, "A_B_C", SafeFileComponent(`A\B:C`))
	assert.Equal(t, "_", SafeFileComponent(".."))
	assert.Equal(t, "_", SafeFileComponent(""))
}
