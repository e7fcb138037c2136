package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrop/filedrop/pkg/catalog"
	"github.com/filedrop/filedrop/pkg/encode"
	"github.com/filedrop/filedrop/pkg/host"
	"github.com/filedrop/filedrop/pkg/logging"
	"github.com/filedrop/filedrop/pkg/pipeline"
	"github.com/filedrop/filedrop/pkg/store"
	"github.com/filedrop/filedrop/pkg/types"
)

type fakeDialog struct {
	paths []string
}

func (f *fakeDialog) OpenFileDialog(context.Context) ([]string, error) {
	return f.paths, nil
}

type fakeNotifier struct {
	sent []host.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n host.Notification) {
	f.sent = append(f.sent, n)
}

type testEnv struct {
	router     *gin.Engine
	notifier   *fakeNotifier
	dialog     *fakeDialog
	storageDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	fs := afero.NewOsFs()

	cat, err := catalog.Open(fs, filepath.Join(dir, "catalog.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	storageDir := filepath.Join(dir, "storage")
	st := store.New(fs, storageDir, logging.Discard())
	p := pipeline.New(st, cat, logging.Discard())

	dialog := &fakeDialog{}
	notifier := &fakeNotifier{}
	gw := New(p, dialog, notifier, logging.Discard())

	router := gin.New()
	gw.RegisterRoutes(router)

	return &testEnv{router: router, notifier: notifier, dialog: dialog, storageDir: storageDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestIngestListRemoveFlow(t *testing.T) {
	env := newTestEnv(t)

	// scenario A: ingest
	w := env.do(t, http.MethodPost, "/api/files", types.Record{
		ID:      "a_1",
		Name:    "a.txt",
		Payload: encode.Encode([]byte("hello")),
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "a_1", body["id"])

	storedPath := filepath.Join(env.storageDir, "a_1.txt")
	assert.FileExists(t, storedPath)

	// scenario B: list returns the payload re-read from disk
	w = env.do(t, http.MethodGet, "/api/files", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Files []types.Record `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "a_1", listing.Files[0].ID)

	data, err := encode.Decode(listing.Files[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// scenario C: remove deletes both file and row
	w = env.do(t, http.MethodDelete, "/api/files/a_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
	assert.NoFileExists(t, storedPath)

	w = env.do(t, http.MethodGet, "/api/files", nil)
	listing.Files = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Empty(t, listing.Files)

	// scenario D: removing again is still success
	w = env.do(t, http.MethodDelete, "/api/files/a_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
}

func TestIngestWithoutPayload(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/files", types.Record{ID: "a_1", Name: "a.txt"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])

	// no side effects
	entries, err := os.ReadDir(env.storageDir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestIngestMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/files", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestReadFile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/files", types.Record{
		ID:      "r_1",
		Name:    "r.bin",
		Payload: encode.Encode([]byte{0x01, 0x02}),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/file/read", gin.H{
		"path": filepath.Join(env.storageDir, "r_1.bin"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	payload, _ := decodeBody(t, w)["payload"].(string)
	data, err := encode.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, data)
}

func TestReadFileMissing(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/file/read", gin.H{
		"path": filepath.Join(env.storageDir, "nope.bin"),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenFileDialog(t *testing.T) {
	env := newTestEnv(t)
	env.dialog.paths = []string{"/home/u/a.txt", "/home/u/b.txt"}

	w := env.do(t, http.MethodPost, "/api/dialog/open", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Paths []string `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, env.dialog.paths, resp.Paths)
}

func TestSystemInfo(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/system", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	platform, _ := body["platform"].(string)
	assert.NotEmpty(t, platform)
}

func TestShowNotification(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/notify", host.Notification{
		Title:    "Upload failed",
		Body:     "a.txt could not be stored",
		Severity: "error",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, "Upload failed", env.notifier.sent[0].Title)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/files", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}

func TestReconcile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/files", types.Record{
		ID:      "s_1",
		Name:    "s.txt",
		Payload: encode.Encode([]byte("x")),
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, os.Remove(filepath.Join(env.storageDir, "s_1.txt")))

	w = env.do(t, http.MethodPost, "/api/files/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["removed"])
}
