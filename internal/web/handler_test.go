package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heic-converter/internal/session"
	"github.com/pdiddy/heic-converter/pkg/types"
)

type fakeConverter struct{}

func (fakeConverter) Convert(data []byte, quality int) ([]byte, error) {
	if bytes.Equal(data, []byte("bad")) {
		return nil, errors.New("cannot decode image")
	}
	return append([]byte("jpeg:"), data...), nil
}

func newTestServer(t *testing.T, maxUpload int64) (*httptest.Server, *session.Store) {
	t.Helper()
	store, err := session.NewStore(types.ServerConfig{TempDir: t.TempDir()}, fakeConverter{}, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := log.New(io.Discard, "", 0)
	srv := httptest.NewServer(Wrap(NewHandler(store, maxUpload, logger), logger))
	t.Cleanup(srv.Close)
	return srv, store
}

type part struct {
	name     string
	filename string
	data     string
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.name, p.filename)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postConvert(t *testing.T, srv *httptest.Server, parts ...part) (*http.Response, map[string]any) {
	t.Helper()
	body, ctype := multipartBody(t, parts...)
	resp, err := http.Post(srv.URL+"/convert", ctype, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), `name="files"`)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConvertDownloadCleanup(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, out := postConvert(t, srv,
		part{"files", "a.heic", "one"},
		part{"files", "a.HEIC", "two"},
		part{"files", "notes.txt", "text"},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.EqualValues(t, 2, out["total_converted"])
	assert.EqualValues(t, 1, out["total_failed"])

	converted := out["converted"].([]any)
	require.Len(t, converted, 2)
	first := converted[0].(map[string]any)
	assert.Equal(t, "a.heic", first["original"])
	assert.Equal(t, "a.jpg", first["converted"])
	assert.EqualValues(t, len("jpeg:one"), first["size"])
	assert.Equal(t, "a_1.jpg", converted[1].(map[string]any)["converted"])

	failed := out["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, map[string]any{"name": "notes.txt", "error": "Not a HEIC/HEIF file"}, failed[0])

	id := out["session_id"].(string)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/download/" + id)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="converted_images.zip"`, resp.Header.Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.jpg", "a_1.jpg"}, names)

	resp, err = http.Post(srv.URL+"/cleanup/"+id, "application/json", nil)
	require.NoError(t, err)
	var cleanup map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cleanup))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": true}, cleanup)

	// Cleanup is an acknowledgement only; the session can still be fetched.
	resp, err = http.Get(srv.URL + "/download/" + id)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConvertErrors(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	t.Run("field absent", func(t *testing.T) {
		resp, out := postConvert(t, srv, part{"other", "a.heic", "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No files uploaded", out["error"])
	})

	t.Run("not multipart", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/convert", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No files uploaded", out["error"])
	})

	t.Run("nothing selected", func(t *testing.T) {
		resp, out := postConvert(t, srv, part{"files", "", ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No files selected", out["error"])
	})

	t.Run("all failed", func(t *testing.T) {
		resp, out := postConvert(t, srv,
			part{"files", "a.png", "x"},
			part{"files", "b.heic", ""},
			part{"files", "c.heic", "bad"},
		)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No files were converted", out["error"])
		failed := out["failed"].([]any)
		require.Len(t, failed, 3)
		assert.Equal(t, "Not a HEIC/HEIF file", failed[0].(map[string]any)["error"])
		assert.Equal(t, "Empty file", failed[1].(map[string]any)["error"])
		assert.Equal(t, "cannot decode image", failed[2].(map[string]any)["error"])
	})
}

func TestConvertTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, 1024)

	resp, out := postConvert(t, srv, part{"files", "big.heic", strings.Repeat("x", 4096)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, out["error"], "1024")
}

func TestDownloadErrors(t *testing.T) {
	srv, store := newTestServer(t, 0)

	emptyID := uuid.NewString()
	require.NoError(t, os.Mkdir(filepath.Join(store.Root(), emptyID), 0o700))

	tests := []struct {
		name   string
		id     string
		status int
		msg    string
	}{
		{"unknown session", uuid.NewString(), http.StatusNotFound, "Session not found or expired"},
		{"malformed token", "not-a-session", http.StatusNotFound, "Session not found or expired"},
		{"empty session", emptyID, http.StatusNotFound, "No files to download"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/download/" + tt.id)
			require.NoError(t, err)
			defer resp.Body.Close()
			var out map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, out["error"])
		})
	}
}

func TestMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/panic" {
			panic("boom")
		}
		_, _ = io.WriteString(w, RequestIDFromContext(r.Context()))
	})
	srv := httptest.NewServer(Wrap(panicky, log.New(io.Discard, "", 0)))
	defer srv.Close()

	t.Run("generates request id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		id := resp.Header.Get("X-Request-ID")
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, string(body))
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
	})

	t.Run("recovers from panic", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/panic")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

// brokenSessions fails every call with an error carrying a local path.
type brokenSessions struct{}

func (brokenSessions) Convert(ctx context.Context, uploads []types.Upload) (*types.SessionResult, error) {
	return nil, fmt.Errorf("creating session: mkdir /var/tmp/heic_converter/x: permission denied")
}

func (brokenSessions) Archive(ctx context.Context, id string) (string, error) {
	return "", fmt.Errorf("archiving session %s: open /var/tmp/heic_converter/%s.zip: no space left on device", id, id)
}

func (brokenSessions) Cleanup(ctx context.Context, id string) error {
	return nil
}

func TestInternalErrorsAreNotExposed(t *testing.T) {
	var logs bytes.Buffer
	logger := session.NewLogger(&logs)
	h := Wrap(NewHandler(brokenSessions{}, 0, logger), logger)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/download/"+id, nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "Internal Server Error", out["error"])
	assert.NotContains(t, rec.Body.String(), "/var/tmp")

	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		assert.True(t, strings.HasPrefix(line, "[CONVERTER] "), line)
	}
	assert.Contains(t, logs.String(), "no space left on device")
	assert.Contains(t, logs.String(), "request_id=req-42")
	assert.Contains(t, logs.String(), "status=500")
}
