// internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newthinker/fileboxes/internal/api/handler"
	"github.com/newthinker/fileboxes/internal/api/response"
	"github.com/newthinker/fileboxes/internal/metrics"
	"github.com/newthinker/fileboxes/internal/snapshot"
	"github.com/newthinker/fileboxes/internal/storage/blob"
	"github.com/newthinker/fileboxes/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	srv   *Server
	store *store.Store
	reg   *metrics.Registry
}

func newFixture(t *testing.T, apiKey string, withSnapshots bool) *fixture {
	t.Helper()
	reg := metrics.NewRegistry()
	path := filepath.Join(t.TempDir(), "box.zip")

	var mgr *snapshot.Manager
	opts := []store.Option{store.WithRecorder(reg)}
	if withSnapshots {
		mgr = snapshot.New(blob.NewMemory(), snapshot.WithRecorder(reg))
	}
	st := store.New(path, opts...)

	srv, err := NewServer(Config{Host: "localhost", Port: 0, APIKey: apiKey}, Dependencies{
		Handler: handler.New(st, mgr, zap.NewNop()),
		Metrics: reg,
	}, zap.NewNop())
	require.NoError(t, err)
	return &fixture{srv: srv, store: st, reg: reg}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is an object: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func TestServer_RequiresHandler(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, nil)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t, "", false)

	w := f.do(t, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(metrics.RequestIDHeader))
}

func TestServer_APIAuth_Required(t *testing.T) {
	f := newFixture(t, "test-key", false)

	w := f.do(t, "GET", "/api/v1/entries", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/v1/entries", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, f.do(t, "GET", "/api/health", "").Code, "health stays open")
}

func TestServer_EntryLifecycle(t *testing.T) {
	f := newFixture(t, "", false)

	w := f.do(t, "PUT", "/api/v1/entries/cfg/app.json", `{"name": "box", "n": [1, 2]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "structured", decodeData(t, w)["kind"])

	w = f.do(t, "GET", "/api/v1/entries/cfg/app.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "cfg/app.json", data["key"])
	assert.Equal(t, map[string]any{"name": "box", "n": []any{1.0, 2.0}}, data["value"])

	w = f.do(t, "GET", "/api/v1/entries/cfg/app.json?raw=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name": "box"`)

	w = f.do(t, "GET", "/api/v1/entries", "")
	data = decodeData(t, w)
	assert.Equal(t, []any{"cfg/app.json"}, data["keys"])

	w = f.do(t, "DELETE", "/api/v1/entries/cfg/app.json", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", "/api/v1/entries/cfg/app.json", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ENTRY_NOT_FOUND", errorCode(t, w))

	w = f.do(t, "DELETE", "/api/v1/entries/cfg/app.json", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_EntryKinds(t *testing.T) {
	f := newFixture(t, "", false)

	require.Equal(t, http.StatusOK, f.do(t, "PUT", "/api/v1/entries/notes.txt", "plain").Code)
	require.Equal(t, http.StatusOK, f.do(t, "PUT", "/api/v1/entries/app.config", "[server]\nport = 80\n").Code)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 5, 4))))
	require.Equal(t, http.StatusOK, f.do(t, "PUT", "/api/v1/entries/pic", buf.String()).Code)

	data := decodeData(t, f.do(t, "GET", "/api/v1/entries/notes.txt", ""))
	assert.Equal(t, "text", data["kind"])
	assert.Equal(t, "plain", data["value"])

	data = decodeData(t, f.do(t, "GET", "/api/v1/entries/app.config", ""))
	assert.Equal(t, "config", data["kind"])
	assert.Equal(t, []any{map[string]any{"name": "server", "keys": map[string]any{"port": "80"}}}, data["value"])

	data = decodeData(t, f.do(t, "GET", "/api/v1/entries/pic", ""))
	assert.Equal(t, "image", data["kind"])
	assert.Equal(t, map[string]any{"format": "png", "width": 5.0, "height": 4.0}, data["value"])

	w := f.do(t, "GET", "/api/v1/entries/pic?raw=1", "")
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestServer_PutErrors(t *testing.T) {
	f := newFixture(t, "", false)

	w := f.do(t, "PUT", "/api/v1/entries/bad.json", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DECODE_FAILED", errorCode(t, w))

	w = f.do(t, "PUT", "/api/v1/entries/x?kind=bogus", "v")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_TYPE", errorCode(t, w))

	w = f.do(t, "PUT", "/api/v1/entries/forced.json?kind=text", "still text")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "PUT", "/api/v1/entries/", "v")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
}

func TestServer_Tree(t *testing.T) {
	f := newFixture(t, "", false)
	require.NoError(t, f.store.Put("a/b.json", map[string]any{"x": 1}))
	require.NoError(t, f.store.Put("a/c.txt", "c"))

	data := decodeData(t, f.do(t, "GET", "/api/v1/tree", ""))
	rendered, _ := data["rendered"].(string)
	assert.Contains(t, rendered, "b.json")

	tree := data["tree"].(map[string]any)
	assert.Equal(t, f.store.Path(), tree["label"])
	children := tree["children"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, "a", children[0].(map[string]any)["label"])
}

func TestServer_SnapshotsDisabled(t *testing.T) {
	f := newFixture(t, "", false)
	w := f.do(t, "GET", "/api/v1/snapshots", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Snapshots(t *testing.T) {
	f := newFixture(t, "", true)

	w := f.do(t, "POST", "/api/v1/snapshots", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "no archive yet")
	assert.Equal(t, "ARCHIVE_NOT_FOUND", errorCode(t, w))

	require.NoError(t, f.store.Put("k.txt", "v1"))
	w = f.do(t, "POST", "/api/v1/snapshots", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	man := decodeData(t, w)
	id := man["id"].(string)
	assert.Contains(t, []any{"zstd", "none"}, man["compression"], "small archives may be stored uncompressed")

	require.NoError(t, f.store.Put("k.txt", "v2"))

	data := decodeData(t, f.do(t, "GET", "/api/v1/snapshots", ""))
	assert.Equal(t, 1.0, data["count"])

	w = f.do(t, "POST", "/api/v1/snapshots/"+id+"/restore", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v, ok, err := f.store.ReadBytes("k.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	assert.Equal(t, http.StatusOK, f.do(t, "DELETE", "/api/v1/snapshots/"+id, "").Code)
	w = f.do(t, "DELETE", "/api/v1/snapshots/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SNAPSHOT_NOT_FOUND", errorCode(t, w))
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t, "", false)
	f.do(t, "PUT", "/api/v1/entries/a.txt", "x")
	f.do(t, "GET", "/api/v1/entries/a.txt", "")

	w := f.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `fileboxes_operations_total{op="write",status="ok"} 1`)
	assert.Contains(t, body, `http_requests_total{method="PUT",path="PUT /api/v1/entries/{key...}",status="2xx"} 1`)
}
