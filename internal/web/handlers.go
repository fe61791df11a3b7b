package web

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/countsheet/internal/core"
	_ "github.com/JonMunkholm/countsheet/internal/core/layouts" // register input layouts
	"github.com/JonMunkholm/countsheet/internal/refdata"
	"github.com/JonMunkholm/countsheet/internal/sheet"
	"github.com/JonMunkholm/countsheet/internal/web/views"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// formOverhead leaves room for the multipart framing and the small fields
// on top of the file itself.
const formOverhead = 64 << 10

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rules := s.service.Rules()
	data := views.UploadData{
		DefaultLayout: core.DefaultLayout,
		CursorMode:    rules.CursorMode,
		PickList:      rules.PickList,
		MaxFileSize:   s.cfg.Upload.MaxFileSize,
	}
	for _, l := range core.AllLayouts() {
		data.Layouts = append(data.Layouts, views.LayoutOption{Key: l.Key, Label: l.Label, Description: l.Description})
	}
	if ref := s.refs.Current(); ref != nil {
		data.Stores = ref.Stores.Names()
		data.ReferenceSource = ref.Source
		data.Products = ref.Catalog.Len()
	}

	templ.Handler(views.UploadPage(data)).ServeHTTP(w, r)
}

// handleGenerate runs the pipeline on the uploaded inventory and streams
// back the zip archive.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid form field: multipart body: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("inventory_file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()
	if header.Size == 0 {
		s.respondError(w, r, sheet.ErrEmptyFile, http.StatusBadRequest)
		return
	}

	form, err := parseGenerateForm(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(WithRequestMetadata(r.Context(), r), s.cfg.Upload.Timeout)
	defer cancel()

	res, err := s.service.Generate(ctx, form.request(header.Filename, file))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.sendArchive(w, r, res)
}

func (s *Server) sendArchive(w http.ResponseWriter, r *http.Request, res *core.Result) {
	f, err := os.Open(res.Archive.Path)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("open archive: %w", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("stat archive: %w", err), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Archive.Name}))
	h.Set("X-Run-ID", res.RunID)
	h.Set("X-Rows-Sampled", strconv.Itoa(res.Stats.Sampled))
	http.ServeContent(w, r, res.Archive.Name, info.ModTime(), f)
}

type storesResponse struct {
	Stores         []string `json:"stores"`
	NamesAvailable bool     `json:"names_available"`
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	ref := s.refs.Current()
	if ref == nil {
		s.respondError(w, r, core.ErrNoReference, http.StatusServiceUnavailable)
		return
	}
	names := ref.Stores.Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, r, http.StatusOK, storesResponse{Stores: names, NamesAvailable: ref.Stores.HasName()})
}

type layoutsResponse struct {
	Default string        `json:"default"`
	Layouts []core.Layout `json:"layouts"`
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, layoutsResponse{Default: core.DefaultLayout, Layouts: core.AllLayouts()})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ref, err := s.refs.Reload(r.Context())
	if err != nil {
		s.respondError(w, r, fmt.Errorf("reload reference data: %w", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, refdata.StatsOf(ref))
}

type healthResponse struct {
	Status    string                `json:"status"`
	Reference refdata.Stats         `json:"reference"`
	Runs      core.RunLimiterStatus `json:"runs"`
}

// handleHealth reports 503 until reference data is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Reference: refdata.StatsOf(s.refs.Current()),
		Runs:      s.service.Limiter().Status(),
	}
	status := http.StatusOK
	if !resp.Reference.Loaded {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}
