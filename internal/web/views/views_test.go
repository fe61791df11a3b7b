package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/countsheet/internal/core"
)

func TestUploadPage(t *testing.T) {
	var buf bytes.Buffer
	err := UploadPage(UploadData{
		Stores:          []string{"Centro", `Norte "B"`},
		Layouts:         []LayoutOption{{Key: "auto", Label: "Automático"}, {Key: "m3", Label: "M3"}},
		DefaultLayout:   "auto",
		CursorMode:      core.CursorAfter,
		PickList:        true,
		MaxFileSize:     50 << 20,
		ReferenceSource: "file:TABLA UPC.xlsx",
		Products:        1200,
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `name="inventory_file"`)
	assert.Contains(t, html, `<option value="Centro">`)
	assert.Contains(t, html, `Norte &#34;B&#34;`)
	assert.Contains(t, html, `<option value="auto" selected`)
	assert.Contains(t, html, `<option value="after" selected>`)
	assert.Contains(t, html, `value="true" checked`)
	assert.Contains(t, html, "1200 products")
	assert.Contains(t, html, "Max 50 MB")
}

func TestUploadPage_NoReference(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, UploadPage(UploadData{}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Reference data is not loaded")
}

func TestErrorPage_EscapesMessage(t *testing.T) {
	var buf bytes.Buffer
	msg := core.UserMessage{Message: "<script>x</script>", Action: "Retry", Code: "ERR000"}
	require.NoError(t, ErrorPage(msg, 500).Render(context.Background(), &buf))

	html := buf.String()
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Code: ERR000")
	assert.Contains(t, html, `href="/"`)
}
