package layouts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/countsheet/internal/core"
)

func TestRegistered(t *testing.T) {
	var keys []string
	for _, l := range core.AllLayouts() {
		keys = append(keys, l.Key)
		assert.NotEmpty(t, l.Label, l.Key)
	}
	assert.Equal(t, []string{"auto", "m3", "standard"}, keys)

	_, ok := core.GetLayout(core.DefaultLayout)
	assert.True(t, ok)
}

func TestM3DropsBannerAndSubtotal(t *testing.T) {
	m3, ok := core.GetLayout("m3")
	require.True(t, ok)

	rows := [][]string{
		{"INVENTARIO SEMANAL M3"},
		{"UPC", "STORE", "WH", "AVAILABLE"},
		{"", "", "", "1500"},
		{"111", "T01", "XRS", "4"},
		{"222", "T01", "XRS", "2"},
	}

	res, err := core.Normalize(rows, m3, core.DefaultRules())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "111", res.Records[0].UPC)
	assert.Equal(t, 4, res.Records[0].Line)
}

func TestAutoFindsBannerHeader(t *testing.T) {
	auto, ok := core.GetLayout("auto")
	require.True(t, ok)

	rows := [][]string{
		{"INVENTARIO SEMANAL M3"},
		{"UPC", "STORE", "WH", "STORE_ON_HAND"},
		{"111", "T01", "XRS", "4"},
	}

	res, err := core.Normalize(rows, auto, core.DefaultRules())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 4, res.Records[0].Available)
}
