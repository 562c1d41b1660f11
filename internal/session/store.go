// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session implements the web conversion flow. A request's uploads
// are converted in memory and the JPEGs written to a directory named by an
// unguessable token; a later request bundles that directory into a ZIP.
// Sessions are recorded in a SQLite index that the reaper uses to expire
// them.
package session

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/heic-converter/internal/heic"
	"github.com/pdiddy/heic-converter/internal/naming"
	"github.com/pdiddy/heic-converter/pkg/types"
)

// NewLogger returns the logger shared by the server's components.
func NewLogger(w io.Writer) *log.Logger {
	return log.New(w, "[CONVERTER] ", log.LstdFlags)
}

// Converter transforms HEIC/HEIF bytes into JPEG bytes. *heic.Converter
// implements it.
type Converter interface {
	Convert(data []byte, quality int) ([]byte, error)
}

// Store owns the session root directory and its index.
type Store struct {
	root    string
	conv    Converter
	quality int
	index   *Index
	log     *log.Logger

	now   func() time.Time
	newID func() string
}

// NewStore creates the session root if needed and opens its index.
// Log lines go to logw; pass io.Discard to silence them. conv may be nil
// for a store that only lists and reaps sessions.
func NewStore(cfg types.ServerConfig, conv Converter, logw io.Writer) (*Store, error) {
	root := cfg.TempDir
	if root == "" {
		root = types.DefaultTempDir()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating session root: %w", err)
	}

	idx, err := OpenIndex(filepath.Join(root, indexFile))
	if err != nil {
		return nil, err
	}

	return &Store{
		root:    root,
		conv:    conv,
		quality: cfg.EffectiveQuality(),
		index:   idx,
		log:     NewLogger(logw),
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Close closes the session index. Session files are left in place.
func (s *Store) Close() error {
	return s.index.Close()
}

// Root returns the directory holding session directories and archives.
func (s *Store) Root() string {
	return s.root
}

// Sessions returns every indexed session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]types.SessionRecord, error) {
	return s.index.List(ctx)
}

// Convert converts each named upload and stores the JPEGs in a new session.
// The session directory is created on the first success; a request with no
// successes creates nothing and returns the result along with
// ErrNoFilesConverted. Per-file failures are reported in the result and do
// not stop the request.
func (s *Store) Convert(ctx context.Context, uploads []types.Upload) (*types.SessionResult, error) {
	named := 0
	for _, up := range uploads {
		if up.Name != "" {
			named++
		}
	}
	if named == 0 {
		return nil, ErrNoInput
	}

	res := &types.SessionResult{
		Converted: []types.ConvertedFile{},
		Failed:    []types.FailedFile{},
	}
	reg := naming.NewRegistry(".jpg")

	var (
		dir   string
		total int64
	)
	for _, up := range uploads {
		if up.Name == "" {
			continue
		}

		out, err := s.convertOne(up)
		if err != nil {
			res.Failed = append(res.Failed, types.FailedFile{Name: up.Name, Error: failureReason(err)})
			continue
		}

		if dir == "" {
			id := s.newID()
			if err := os.Mkdir(filepath.Join(s.root, id), 0o700); err != nil {
				res.Failed = append(res.Failed, types.FailedFile{Name: up.Name, Error: fmt.Sprintf("creating session: %v", err)})
				continue
			}
			res.SessionID = id
			dir = filepath.Join(s.root, id)
		}

		name := reg.Assign(naming.Sanitize(up.Name))
		if err := os.WriteFile(filepath.Join(dir, name), out, 0o644); err != nil {
			res.Failed = append(res.Failed, types.FailedFile{Name: up.Name, Error: fmt.Errorf("%w: %v", heic.ErrEncode, err).Error()})
			continue
		}

		res.Converted = append(res.Converted, types.ConvertedFile{
			Original:  up.Name,
			Converted: name,
			Size:      int64(len(out)),
		})
		total += int64(len(out))
	}

	if len(res.Converted) == 0 {
		return res, ErrNoFilesConverted
	}

	rec := types.SessionRecord{
		ID:        res.SessionID,
		CreatedAt: s.now().UTC(),
		Files:     len(res.Converted),
		Bytes:     total,
	}
	if err := s.index.Record(ctx, rec); err != nil {
		s.log.Printf("session %s: %v", res.SessionID, err)
	}
	s.log.Printf("session %s: %d converted, %d failed", res.SessionID, res.TotalConverted(), res.TotalFailed())
	return res, nil
}

func (s *Store) convertOne(up types.Upload) ([]byte, error) {
	name := naming.Sanitize(up.Name)
	if name == "" || !heic.IsHEIC(name) {
		return nil, heic.ErrUnsupportedExtension
	}
	if len(up.Data) == 0 {
		return nil, heic.ErrEmptyFile
	}
	if s.conv == nil {
		return nil, fmt.Errorf("%w: no converter configured", heic.ErrDecode)
	}
	return s.conv.Convert(up.Data, s.quality)
}

// Archive bundles every file in the session into {root}/{id}.zip and
// returns its path. Entries are stored flat, sorted by name, and carry the
// files' modification times, so repeated calls on an unchanged session
// produce identical archives. The session itself is kept.
func (s *Store) Archive(ctx context.Context, id string) (string, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading session %s: %w", id, err)
	}
	var files []os.DirEntry
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e)
		}
	}
	if len(files) == 0 {
		return "", ErrEmptySession
	}

	dest := filepath.Join(s.root, id+".zip")
	if err := writeArchive(dest, dir, files); err != nil {
		return "", fmt.Errorf("archiving session %s: %w", id, err)
	}

	if err := s.index.MarkDownloaded(ctx, id, s.now().UTC()); err != nil {
		s.log.Printf("session %s: %v", id, err)
	}
	return dest, nil
}

// Cleanup acknowledges a client's request to discard a session. Files are
// retained until the reaper expires them.
func (s *Store) Cleanup(ctx context.Context, id string) error {
	s.log.Printf("session %s: cleanup requested", id)
	return nil
}

// sessionDir maps a token to its directory. Only canonical UUID strings are
// accepted, so a token can never name a path outside the root.
func (s *Store) sessionDir(id string) (string, error) {
	if !validID(id) {
		return "", ErrSessionNotFound
	}
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", ErrSessionNotFound
	}
	return dir, nil
}

func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// writeArchive writes the zip to a temporary file beside dest and renames
// it into place.
func writeArchive(dest, dir string, files []os.DirEntry) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, e := range files {
		if err := addFile(zw, dir, e); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func addFile(zw *zip.Writer, dir string, e os.DirEntry) error {
	info, err := e.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = e.Name()
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, e.Name()))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
