package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/metasync/internal/config"
	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/host"
)

type testServer struct {
	*Server
	lib  *host.Memory
	clip string
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{MaxUploadSize: 1 << 20, RequestTimeout: 5 * time.Second},
		Host:      config.HostConfig{Backend: config.BackendMemory},
		Reconcile: config.ReconcileConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute, MaxRows: 1000},
		Security:  config.SecurityConfig{EnableCSP: true},
	}
	for _, m := range mutate {
		m(cfg)
	}

	lib := host.NewMemory()
	folder := lib.AddFolder(lib.RootID(), "Day 1")
	clip := lib.AddClip(folder, "A001_C002.mov")

	svc := core.NewService(host.Static(lib), core.NewMemoryStore(0), cfg)
	return &testServer{Server: NewServer(svc, cfg), lib: lib, clip: clip}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func applyBody() map[string]any {
	return map[string]any{
		"filenameColumn": "Clip",
		"mappings": []map[string]string{
			{"column": "Scene", "metadataKey": "Scene"},
			{"column": "Take", "metadataKey": "Take"},
		},
		"rows": []map[string]any{
			{"Clip": "a001_c002", "Scene": "12A", "Take": 3},
			{"Clip": "missing.mov", "Scene": "1"},
			{"Clip": "  "},
		},
	}
}

// =============================================================================
// PAGES
// =============================================================================

func TestIndexAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>metasync</title>")
	assert.Contains(t, rec.Body.String(), `value="Scene"`)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")

	rec = ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = ts.do(t, http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// SHEETS
// =============================================================================

func TestSheetUpload(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "report.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\ufeffScene,Clip Name,Take\n12A,A001_C002.mov,3\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sheet/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success   bool                `json:"success"`
		Headers   []string            `json:"headers"`
		Rows      []map[string]string `json:"rows"`
		KeyColumn string              `json:"keyColumn"`
		Source    string              `json:"source"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"Scene", "Clip Name", "Take"}, resp.Headers)
	assert.Equal(t, "Clip Name", resp.KeyColumn)
	assert.Equal(t, "csv:report.csv", resp.Source)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "12A", resp.Rows[0]["Scene"])
}

func TestSheetUpload_NoFile(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("delimiter", ";"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sheet/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "SRC004", resp.Code)
	assert.False(t, resp.Success)
}

func TestSheetPreview_MissingCredentials(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/sheet/preview", map[string]string{
		"spreadsheetId":   "abc",
		"range":           "Sheet1!A:Z",
		"credentialsPath": "/etc/passwd",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "SRC001", resp.Code)
	assert.Contains(t, resp.Error, "Credentials path is required.")
}

func TestSheetPreview_PublishedHTML(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<table><tr><td>File Name</td><td>Scene</td></tr><tr><td>A001_C002.mov</td><td>4</td></tr></table>`))
	}))
	defer page.Close()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/sheet/preview", map[string]any{"url": page.URL, "published": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		KeyColumn string `json:"keyColumn"`
		Rows      []map[string]string
	}
	decode(t, rec, &resp)
	assert.Equal(t, "File Name", resp.KeyColumn)
	assert.Len(t, resp.Rows, 1)
}

// =============================================================================
// PASSES
// =============================================================================

func TestApply_WireFormat(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/metadata/apply", applyBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool `json:"success"`
		RunID   string
		Stats   struct {
			TotalRows, Matched, Updated, Missing, FailedAssignments int
		}
		MissingClips []struct{ Filename string } `json:"missingClips"`
		Failures     []any                       `json:"failures"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 3, resp.Stats.TotalRows)
	assert.Equal(t, 1, resp.Stats.Matched)
	assert.Equal(t, 1, resp.Stats.Updated)
	assert.Equal(t, 2, resp.Stats.Missing)
	assert.NotNil(t, resp.Failures)
	require.Len(t, resp.MissingClips, 2)
	assert.Equal(t, "missing.mov", resp.MissingClips[0].Filename)
	assert.Equal(t, "(blank filename)", resp.MissingClips[1].Filename)

	md := ts.lib.Metadata(ts.clip)
	assert.Equal(t, "12A", md["Scene"])
	assert.Equal(t, "3", md["Take"])

	rec = ts.do(t, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []core.Run
	decode(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
	assert.Nil(t, runs[0].Outcome)

	rec = ts.do(t, http.MethodGet, "/api/runs/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run core.Run
	decode(t, rec, &run)
	require.NotNil(t, run.Outcome)
	assert.Len(t, run.Outcome.MissingRows, 2)
}

func TestApply_ConfigurationError(t *testing.T) {
	ts := newTestServer(t)

	body := applyBody()
	body["filenameColumn"] = ""
	rec := ts.do(t, http.MethodPost, "/api/metadata/apply", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "CFG001", resp.Code)
	assert.Equal(t, "select the column that contains filenames", resp.Error)
	assert.Empty(t, ts.lib.Metadata(ts.clip))
}

func TestApply_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/metadata/apply", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQ001")
}

func TestDryRun(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/metadata/dry-run", applyBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success       bool
		Matched       int
		PlannedWrites int
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Matched)
	assert.Equal(t, 2, resp.PlannedWrites)
	assert.Empty(t, ts.lib.Metadata(ts.clip))
}

func TestGetRun_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NF001")
}

// =============================================================================
// PRESETS
// =============================================================================

func TestPresets(t *testing.T) {
	ts := newTestServer(t)

	preset := map[string]any{
		"name":      "Camera report",
		"keyColumn": "Clip",
		"mappings":  []map[string]string{{"column": "Scene", "metadataKey": "Scene"}},
		"headers":   []string{"Clip", "Scene", "Take"},
	}
	rec := ts.do(t, http.MethodPost, "/api/presets", preset)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct{ ID, Name string }
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)

	rec = ts.do(t, http.MethodPost, "/api/presets", preset)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/presets", map[string]any{"name": "broken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "CFG004")

	rec = ts.do(t, http.MethodPost, "/api/presets/match", map[string]any{"headers": []string{"clip", "scene", "take", "notes"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []struct {
		MatchScore float64 `json:"matchScore"`
	}
	decode(t, rec, &matches)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].MatchScore, 0.001)

	rec = ts.do(t, http.MethodGet, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	preset["keyColumn"] = "File Name"
	rec = ts.do(t, http.MethodPut, "/api/presets/"+created.ID, preset)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"keyColumn":"File Name"`)

	rec = ts.do(t, http.MethodDelete, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/presets", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

// =============================================================================
// AUTH
// =============================================================================

func TestAPIRequiresKey(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := ts.do(t, http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
