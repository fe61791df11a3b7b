// Package views renders the HTML pages of the count-sheet server as templ
// components.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/countsheet/internal/core"
)

// LayoutOption is one entry of the layout drop-down.
type LayoutOption struct {
	Key         string
	Label       string
	Description string
}

// UploadData feeds UploadPage.
type UploadData struct {
	Stores        []string
	Layouts       []LayoutOption
	DefaultLayout string
	CursorMode    core.CursorMode
	PickList      bool
	MaxFileSize   int64

	ReferenceSource string // "" when no reference data is loaded
	Products        int
}

// htmlWriter stops writing after the first error and remembers it.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) rawf(format string, args ...any) {
	if h.err == nil {
		_, h.err = fmt.Fprintf(h.w, format, args...)
	}
}

const pageHead = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>`

const pageStyle = `</title>
<style>
body{font-family:system-ui,sans-serif;max-width:44rem;margin:2rem auto;padding:0 1rem;color:#222}
label{display:block;margin-top:1rem;font-weight:600}
input,select{width:100%;padding:.4rem;margin-top:.25rem}
input[type=checkbox]{width:auto}
button{margin-top:1.5rem;padding:.6rem 1.2rem}
.muted{color:#666;font-size:.9rem}
.alert{border:1px solid #c33;background:#fee;padding:1rem;margin:1rem 0}
</style>
</head>
<body>
`

func page(h *htmlWriter, title string) {
	h.raw(pageHead)
	h.text(title)
	h.raw(pageStyle)
}

// UploadPage is the form that posts a weekly inventory file and downloads
// the count-proposal archive.
func UploadPage(d UploadData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		page(h, "Propuesta de conteo")

		h.raw("<h1>Propuesta de conteo</h1>\n")
		if d.ReferenceSource == "" {
			h.raw(`<div class="alert">`)
			h.text("Reference data is not loaded. Generation is unavailable until it is reloaded.")
			h.raw("</div>\n")
		} else {
			h.raw(`<p class="muted">`)
			h.text(fmt.Sprintf("Catalog: %s (%d products)", d.ReferenceSource, d.Products))
			h.raw("</p>\n")
		}

		h.raw(`<form method="post" action="/" enctype="multipart/form-data">` + "\n")

		h.raw(`<label for="inventory_file">Inventario semanal (.xlsx, .csv)</label>`)
		h.raw(`<input type="file" id="inventory_file" name="inventory_file" accept=".xlsx,.csv,.txt" required>`)
		if d.MaxFileSize > 0 {
			h.raw(`<span class="muted">`)
			h.text("Max " + strconv.FormatInt(d.MaxFileSize/(1<<20), 10) + " MB")
			h.raw("</span>")
		}
		h.raw("\n")

		h.raw(`<label for="store">Tienda (vacío = todas)</label>`)
		h.raw(`<input type="text" id="store" name="store" list="stores" maxlength="120">`)
		h.raw(`<datalist id="stores">`)
		for _, s := range d.Stores {
			h.raw(`<option value="`)
			h.text(s)
			h.raw(`">`)
		}
		h.raw("</datalist>\n")

		h.raw(`<label for="resume_token">Último BARCODE de la propuesta anterior</label>`)
		h.raw(`<input type="text" id="resume_token" name="resume_token" maxlength="120">` + "\n")

		h.raw(`<label for="layout">Formato del archivo</label><select id="layout" name="layout">`)
		for _, l := range d.Layouts {
			h.raw(`<option value="`)
			h.text(l.Key)
			h.raw(`"`)
			if l.Key == d.DefaultLayout {
				h.raw(" selected")
			}
			h.raw(` title="`)
			h.text(l.Description)
			h.raw(`">`)
			h.text(l.Label)
			h.raw("</option>")
		}
		h.raw("</select>\n")

		h.raw(`<label for="cursor">Continuar desde el BARCODE</label><select id="cursor" name="cursor">`)
		for _, m := range []core.CursorMode{core.CursorAfter, core.CursorExact} {
			label := "posteriores"
			if m == core.CursorExact {
				label = "solo el mismo"
			}
			h.rawf(`<option value="%s"`, m)
			if m == d.CursorMode {
				h.raw(" selected")
			}
			h.raw(">")
			h.text(label)
			h.raw("</option>")
		}
		h.raw("</select>\n")

		h.raw(`<label><input type="checkbox" name="pick_list" value="true"`)
		if d.PickList {
			h.raw(" checked")
		}
		h.raw("> Incluir lista de UPC</label>\n")

		h.raw(`<button type="submit">Generar</button>` + "\n</form>\n</body>\n</html>\n")
		return h.err
	})
}

// ErrorAlert is the fragment swapped in for HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw("</strong>")
		if action != "" {
			h.raw("<p>")
			h.text(action)
			h.raw("</p>")
		}
		h.raw(`<p class="muted">`)
		h.text("Code: " + code)
		h.raw("</p></div>\n")
		return h.err
	})
}

// ErrorPage wraps ErrorAlert in a full page with a link back to the form.
func ErrorPage(msg core.UserMessage, status int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		page(h, "Error "+strconv.Itoa(status))
		h.raw("<h1>No se pudo generar la propuesta</h1>\n")
		if h.err != nil {
			return h.err
		}
		if err := ErrorAlert(msg.Message, msg.Action, msg.Code).Render(ctx, w); err != nil {
			return err
		}
		h.raw(`<p><a href="/">Volver</a></p>` + "\n</body>\n</html>\n")
		return h.err
	})
}
