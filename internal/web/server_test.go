package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/config"
	"github.com/JonMunkholm/catalogcsv/internal/core"
	"github.com/JonMunkholm/catalogcsv/internal/memstore"
)

const sampleCSV = "Sku;Name;ListPrice\nA;Alpha;1\nB;Beta;2\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Import: config.ImportConfig{Delimiter: ";", MaxFileSize: 1 << 20},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *memstore.Store) {
	t.Helper()

	store := memstore.New()
	store.AddCatalog(catalog.Catalog{ID: "c1", Name: "Main", DefaultLanguage: "en-US"})

	imp := core.NewImporter(store.Stores(), core.DefaultOptions(), nil)
	svc := core.NewService(imp, store, core.ServiceOptionsFromConfig(cfg.Import))

	srv := NewServer(svc, cfg)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.WaitForImports(ctx)
	})
	return srv, store
}

// multipartBody builds an upload form with a file part and extra fields.
func multipartBody(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, srv *Server, path, fileName, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fileName, content, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return do(t, srv, req)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func startImport(t *testing.T, srv *Server) string {
	t.Helper()
	rec := uploadFile(t, srv, "/api/catalogs/c1/import", "products.csv", sampleCSV, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decodeBody[map[string]string](t, rec)
	require.NotEmpty(t, resp["run_id"])
	return resp["run_id"]
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestImport_StartAndWaitForResult(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	runID := startImport(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/"+runID+"/result?wait=true", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[core.ImportResult](t, rec)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "c1", result.CatalogID)
	assert.Equal(t, "products.csv", result.FileName)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.Processed)
	assert.Len(t, store.Products(), 2)

	// Finished runs answer without waiting
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/"+runID+"/result", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/"+runID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decodeBody[core.ProgressInfo](t, rec)
	assert.Equal(t, core.PhaseDone, progress.Phase)
}

func TestImport_ProgressStream(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	runID := startImport(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/"+runID+"/result?wait=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// The run is over: the stream sends the final state and completes
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/"+runID+"/progress", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: progress\n")
	assert.Contains(t, body, `"phase":"done"`)
	assert.True(t, strings.Contains(body, "event: complete\ndata: "), body)
}

func TestImport_UnknownRun(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	paths := []string{
		"/api/import/nope",
		"/api/import/nope/result",
		"/api/import/nope/progress",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "IMP006", decodeBody[ErrorResponse](t, rec).Code)
		})
	}

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/import/nope/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImport_UploadErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64

	srv, _ := newTestServer(t, cfg)

	tests := []struct {
		name     string
		fileName string
		content  string
		fields   map[string]string
		status   int
		code     string
	}{
		{
			name:   "missing file",
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name:     "file too large",
			fileName: "big.csv",
			content:  "Sku;Name\n" + strings.Repeat("A;Alpha\n", 20),
			status:   http.StatusRequestEntityTooLarge,
			code:     "FILE001",
		},
		{
			name:     "malformed mapping",
			fileName: "products.csv",
			content:  sampleCSV,
			fields:   map[string]string{"mapping": "{not json"},
			status:   http.StatusBadRequest,
			code:     "MAP001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := uploadFile(t, srv, "/api/catalogs/c1/import", tt.fileName, tt.content, tt.fields)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestPreviewImport(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	rec := uploadFile(t, srv, "/api/catalogs/c1/import/preview", "products.csv", sampleCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	preview := decodeBody[core.PreviewResponse](t, rec)
	assert.Equal(t, 2, preview.Summary.TotalRows)
	assert.Equal(t, 2, preview.Summary.Products)
	assert.Equal(t, 2, preview.Summary.NewProducts)
	assert.Empty(t, store.Products(), "preview must not save")
}

func TestImportStatus(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxConcurrent = 2
	srv, _ := newTestServer(t, cfg)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[core.LimiterStatus](t, rec)
	assert.Equal(t, 2, status.MaxConcurrent)
	assert.Equal(t, 2, status.Available)
}

func TestDetectMapping(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := uploadFile(t, srv, "/api/import/mapping", "products.csv", sampleCSV, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[mappingResponse](t, rec)
	assert.Equal(t, []string{"Sku", "Name", "ListPrice"}, resp.Header)
	assert.Nil(t, resp.Template)
	require.NotNil(t, resp.Mapping)
	assert.Equal(t, ";", resp.Mapping.Delimiter)

	pm, ok := resp.Mapping.Entry("Sku")
	require.True(t, ok)
	assert.Equal(t, "Sku", pm.CsvColumnName)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/mapping/default", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	def := decodeBody[core.MappingConfiguration](t, rec)
	assert.NotEmpty(t, def.PropertyMaps)
}

func TestTemplates(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	send := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(t, srv, req)
	}

	rec := send(http.MethodGet, "/api/import/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	tmpl := `{"name":"Supplier","mapping":{"delimiter":";","csvColumns":["Code","Title"],` +
		`"propertyMaps":[{"entityColumnName":"Sku","csvColumnName":"Code"},{"entityColumnName":"Name","csvColumnName":"Title"}]}}`

	rec = send(http.MethodPost, "/api/import/templates", tmpl)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[core.MappingTemplate](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Supplier", created.Name)

	rec = send(http.MethodPost, "/api/import/templates", tmpl)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "MAP003", decodeBody[ErrorResponse](t, rec).Code)

	rec = send(http.MethodPost, "/api/import/templates", `{"name":"No mapping"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(http.MethodGet, "/api/import/templates/match?headers=Code,%20Title", "")
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decodeBody[[]core.TemplateMatch](t, rec)
	require.Len(t, matches, 1)
	assert.Equal(t, created.ID, matches[0].Template.ID)

	rec = send(http.MethodGet, "/api/import/templates/match", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An upload with the template's layout picks the template
	rec = uploadFile(t, srv, "/api/import/mapping", "supplier.csv", "Code;Title\nA;Alpha\n", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detected := decodeBody[mappingResponse](t, rec)
	require.NotNil(t, detected.Template)
	assert.Equal(t, created.ID, detected.Template.ID)

	rec = send(http.MethodPut, "/api/import/templates/"+created.ID, strings.Replace(tmpl, `"Supplier"`, `"Supplier v2"`, 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Supplier v2", decodeBody[core.MappingTemplate](t, rec).Name)

	rec = send(http.MethodGet, "/api/import/templates/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Supplier v2", decodeBody[core.MappingTemplate](t, rec).Name)

	rec = send(http.MethodDelete, "/api/import/templates/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(http.MethodGet, "/api/import/templates/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	srv, _ := newTestServer(t, cfg)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/import/status", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = do(t, srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health checks stay open
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeBody[ErrorResponse](t, rec).Code)
}

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "visitors are tracked separately")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("1.1.1.1"), "tokens reset after the window")

	rl.stop() // idempotent
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", core.ErrImportNotFound), http.StatusNotFound},
		{core.ErrTemplateNotFound, http.StatusNotFound},
		{catalog.ErrNotFound, http.StatusNotFound},
		{core.ErrTemplateExists, http.StatusConflict},
		{core.ErrTooManyImports, http.StatusTooManyRequests},
		{fmt.Errorf("read upload: %w", core.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{core.ErrInvalidMapping, http.StatusBadRequest},
		{core.ErrEmptyFile, http.StatusBadRequest},
		{core.ErrUnsupportedFileType, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesServerDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(rec, req, errors.New("pq: connection refused on 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.NotContains(t, resp.Error, "10.0.0.5")
	assert.Equal(t, resp.Message, resp.Error)
}
