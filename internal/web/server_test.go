package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/countsheet/internal/config"
	"github.com/JonMunkholm/countsheet/internal/core"
	"github.com/JonMunkholm/countsheet/internal/refdata"
	"github.com/JonMunkholm/countsheet/internal/sheet"
)

const weekCSV = `UPC,AVAILABLE,WH,STORE,Size
111,5,XRS,T01,24
222,-2,XRS,T01,24
333,0,XRS,T01,25
444,10,XRS,T01,25
`

type loaderFunc func(ctx context.Context) (*core.Reference, error)

func (f loaderFunc) Load(ctx context.Context) (*core.Reference, error) { return f(ctx) }

func testReference() *core.Reference {
	entry := func(upc, style string) core.CatalogEntry {
		return core.CatalogEntry{UPC: upc, Brand: "ACME", Style: style, StyleCode: style, ColorCode: "1", ColorName: "NEGRO"}
	}
	cat, _ := core.NewCatalog([]core.CatalogEntry{entry("111", "D"), entry("222", "B"), entry("333", "C"), entry("444", "A")}, true)
	dir, _ := core.NewStoreDirectory([]core.StoreEntry{{Code: "T01", Name: "Centro"}, {Code: "T02", Name: "Norte"}}, true)
	return &core.Reference{Catalog: cat, Stores: dir, Source: "test", LoadedAt: time.Now()}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

// newTestServer returns a server whose reference holder is loaded unless
// loaded is false.
func newTestServer(t *testing.T, loaded bool, loader refdata.Loader) *Server {
	t.Helper()
	if loader == nil {
		loader = loaderFunc(func(context.Context) (*core.Reference, error) { return testReference(), nil })
	}
	holder := refdata.NewHolder(loader)
	if loaded {
		_, err := holder.Reload(context.Background())
		require.NoError(t, err)
	}

	svc, err := core.NewService(holder, core.ServiceConfig{
		OutputDir: t.TempDir(),
		Rules:     core.DefaultRules(),
		Limiter:   core.NewRunLimiter(1, time.Second),
	})
	require.NoError(t, err)

	s := NewServer(svc, holder, testConfig())
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("inventory_file", fileName)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, true, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	body := rec.Body.String()
	assert.Contains(t, body, `name="inventory_file"`)
	assert.Contains(t, body, `<option value="Centro">`)
	assert.Contains(t, body, `<option value="m3"`)
}

func TestGenerate_ReturnsArchive(t *testing.T) {
	s := newTestServer(t, true, nil)

	body, ct := multipartBody(t, map[string]string{"store": "Centro", "pick_list": "on"}, "semana.csv", weekCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Propuesta_Centro_")
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	assert.Equal(t, "1", rec.Header().Get("X-Rows-Sampled"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3, "pivot, UPC summary and pick list")
}

func TestGenerate_FormPostOnRoot(t *testing.T) {
	s := newTestServer(t, true, nil)

	body, ct := multipartBody(t, nil, "semana.csv", weekCSV)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "PropuestaConteo_")
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		file     string
		content  string
		wantCode int
		wantErr  string
	}{
		{"missing file", map[string]string{"store": "Centro"}, "", "", http.StatusBadRequest, "FILE004"},
		{"empty file", nil, "semana.csv", "", http.StatusBadRequest, "FILE003"},
		{"bad cursor", map[string]string{"cursor": "sideways"}, "semana.csv", weekCSV, http.StatusBadRequest, "FORM001"},
		{"unknown layout", map[string]string{"layout": "nope"}, "semana.csv", weekCSV, http.StatusBadRequest, "FORM001"},
		{"unsupported format", nil, "semana.pdf", "%PDF-1.4\x00\x01binary", http.StatusBadRequest, "FILE002"},
		{"missing column", nil, "semana.csv", "UPC,WH,STORE\n111,XRS,T01\n", http.StatusInternalServerError, "SCH001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true, nil)
			body, ct := multipartBody(t, tt.fields, tt.file, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
			req.Header.Set("Content-Type", ct)

			rec := serve(s, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantErr, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestGenerate_NoReference(t *testing.T) {
	s := newTestServer(t, false, nil)

	body, ct := multipartBody(t, nil, "semana.csv", weekCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(s, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "REF001", decodeError(t, rec).Code)
}

func TestGenerate_BrowserGetsErrorPage(t *testing.T) {
	s := newTestServer(t, true, nil)

	body, ct := multipartBody(t, nil, "", "")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "text/html")

	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Code: FILE004")
}

func TestGenerate_HTMXGetsFragment(t *testing.T) {
	s := newTestServer(t, true, nil)

	body, ct := multipartBody(t, nil, "", "")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("HX-Request", "true")

	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<html")
	assert.Contains(t, rec.Body.String(), `role="alert"`)
}

func TestStores(t *testing.T) {
	s := newTestServer(t, true, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/stores", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp storesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Centro", "Norte"}, resp.Stores)
	assert.True(t, resp.NamesAvailable)
}

func TestStores_NotLoaded(t *testing.T) {
	s := newTestServer(t, false, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/stores", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLayouts(t *testing.T) {
	s := newTestServer(t, true, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/layouts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Default string `json:"default"`
		Layouts []struct {
			Key string `json:"key"`
		} `json:"layouts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "auto", resp.Default)

	var keys []string
	for _, l := range resp.Layouts {
		keys = append(keys, l.Key)
	}
	assert.Equal(t, []string{"auto", "m3", "standard"}, keys)
}

func TestReload(t *testing.T) {
	fail := false
	s := newTestServer(t, true, loaderFunc(func(context.Context) (*core.Reference, error) {
		if fail {
			return nil, errors.New("catalog unreadable")
		}
		return testReference(), nil
	}))

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/reference/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats refdata.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.True(t, stats.Loaded)
	assert.Equal(t, 4, stats.Products)

	fail = true
	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/reference/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "failed reload keeps the old data")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 1, resp.Runs.MaxConcurrent)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/reference/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Reference.Source)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(ctx, 2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "limits are per IP")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("1.1.1.1"), "window resets")
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, GenerateLimit: 1}

	holder := refdata.NewHolder(loaderFunc(func(context.Context) (*core.Reference, error) { return testReference(), nil }))
	svc, err := core.NewService(holder, core.ServiceConfig{OutputDir: t.TempDir(), Rules: core.DefaultRules()})
	require.NoError(t, err)
	s := NewServer(svc, holder, cfg)
	defer s.Shutdown(context.Background())

	post := func() *httptest.ResponseRecorder {
		body, ct := multipartBody(t, nil, "", "")
		req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
		req.Header.Set("Content-Type", ct)
		return serve(s, req)
	}

	assert.Equal(t, http.StatusBadRequest, post().Code)
	rec := post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrTooManyRuns, http.StatusServiceUnavailable},
		{core.ErrNoReference, http.StatusServiceUnavailable},
		{fmt.Errorf("derive: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{&core.FieldValueError{Line: 2, Column: "AVAILABLE", Value: "1e30", Err: core.ErrQuantityRange}, http.StatusInternalServerError},
		{fmt.Errorf("read: %w", sheet.ErrEmptyFile), http.StatusBadRequest},
		{&core.StageError{Stage: core.StageNormalize, Err: core.ErrUnknownLayout}, http.StatusBadRequest},
		{errors.New("file too large: exceeds 10 bytes"), http.StatusRequestEntityTooLarge},
		{&core.StageError{Stage: core.StageSelect, Err: &core.NoSuchStoreError{Store: "x"}}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
