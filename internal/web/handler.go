// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the upload page and the JSON conversion API over a
// session store.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/pdiddy/heic-converter/internal/session"
	"github.com/pdiddy/heic-converter/pkg/types"
)

// ArchiveName is the filename offered to clients for a session download.
const ArchiveName = "converted_images.zip"

// multipartMemory is how much of a request ParseMultipartForm keeps in
// memory; larger parts spill to temporary files.
const multipartMemory = 32 << 20

//go:embed static/index.html
var indexHTML []byte

// Sessions is the session driver the handler delegates to.
// *session.Store implements it.
type Sessions interface {
	Convert(ctx context.Context, uploads []types.Upload) (*types.SessionResult, error)
	Archive(ctx context.Context, id string) (string, error)
	Cleanup(ctx context.Context, id string) error
}

type Handler struct {
	sessions  Sessions
	maxUpload int64
	log       *log.Logger
	mux       *http.ServeMux
}

// NewHandler returns a handler serving every route. A maxUpload of zero or
// less selects types.DefaultMaxUploadBytes; a nil logger selects the
// standard logger.
func NewHandler(sessions Sessions, maxUpload int64, logger *log.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = types.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &Handler{sessions: sessions, maxUpload: maxUpload, log: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /{$}", h.handleIndex)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("POST /convert", h.handleConvert)
	h.mux.HandleFunc("GET /download/{session_id}", h.handleDownload)
	h.mux.HandleFunc("POST /cleanup/{session_id}", h.handleCleanup)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, ok, err := readUploads(r.MultipartForm)
	if err != nil {
		h.log.Printf("reading uploads: %v", err)
		writeError(w, http.StatusBadRequest, "Could not read uploaded files")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}
	h.log.Printf("received %d file(s)", len(uploads))

	res, err := h.sessions.Convert(r.Context(), uploads)
	if errors.Is(err, session.ErrNoFilesConverted) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No files were converted", Failed: res.Failed})
		return
	}
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		Success:        true,
		SessionID:      res.SessionID,
		Converted:      res.Converted,
		Failed:         res.Failed,
		TotalConverted: res.TotalConverted(),
		TotalFailed:    res.TotalFailed(),
	})
}

// readUploads collects the "files" field. A file input submitted with
// nothing selected arrives as a part without a filename, which the
// multipart reader files under Value; those become unnamed uploads. ok is
// false when the field is absent altogether.
func readUploads(form *multipart.Form) (uploads []types.Upload, ok bool, err error) {
	headers, hasFiles := form.File["files"]
	values, hasValues := form.Value["files"]
	if !hasFiles && !hasValues {
		return nil, false, nil
	}

	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, true, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, types.Upload{Name: fh.Filename, Data: data})
	}
	for range values {
		uploads = append(uploads, types.Upload{})
	}
	return uploads, true, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	path, err := h.sessions.Archive(r.Context(), id)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	h.log.Printf("session %s: serving %s (%d bytes)", id, ArchiveName, info.Size())
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ArchiveName))
	http.ServeContent(w, r, ArchiveName, info.ModTime(), f)
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Cleanup(r.Context(), r.PathValue("session_id")); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Success: true})
}

// writeSessionError maps session errors to HTTP responses. Unexpected
// errors are logged; the client only sees a generic message.
func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNoInput):
		writeError(w, http.StatusBadRequest, "No files selected")
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found or expired")
	case errors.Is(err, session.ErrEmptySession):
		writeError(w, http.StatusNotFound, "No files to download")
	default:
		h.log.Printf("%s %s request_id=%s: %v", r.Method, r.URL.Path, RequestIDFromContext(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}
