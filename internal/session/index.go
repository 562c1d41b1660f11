// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/heic-converter/pkg/types"
)

const indexFile = "sessions.db"

// Index records sessions in a SQLite database so the reaper can find
// expired ones without walking the filesystem. Times are stored as Unix
// nanoseconds.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path and creates the
// schema if it does not exist.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening session index: %w", err)
	}
	db.SetMaxOpenConns(1)

	idx := &Index{db: db}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			files INTEGER NOT NULL DEFAULT 0,
			bytes INTEGER NOT NULL DEFAULT 0,
			downloads INTEGER NOT NULL DEFAULT 0,
			last_download_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := i.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts or replaces the entry for rec.ID.
func (i *Index) Record(ctx context.Context, rec types.SessionRecord) error {
	var last sql.NullInt64
	if !rec.LastDownloadAt.IsZero() {
		last = sql.NullInt64{Int64: rec.LastDownloadAt.UnixNano(), Valid: true}
	}
	_, err := i.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, created_at, files, bytes, downloads, last_download_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixNano(), rec.Files, rec.Bytes, rec.Downloads, last,
	)
	if err != nil {
		return fmt.Errorf("recording session %s: %w", rec.ID, err)
	}
	return nil
}

// MarkDownloaded increments the download count of id and stamps at.
// Unknown ids are ignored.
func (i *Index) MarkDownloaded(ctx context.Context, id string, at time.Time) error {
	_, err := i.db.ExecContext(ctx,
		`UPDATE sessions SET downloads = downloads + 1, last_download_at = ? WHERE id = ?`,
		at.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("marking session %s downloaded: %w", id, err)
	}
	return nil
}

// Get returns the entry for id, or ErrSessionNotFound.
func (i *Index) Get(ctx context.Context, id string) (types.SessionRecord, error) {
	row := i.db.QueryRowContext(ctx,
		`SELECT id, created_at, files, bytes, downloads, last_download_at FROM sessions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SessionRecord{}, ErrSessionNotFound
	}
	return rec, err
}

// List returns every entry, oldest first.
func (i *Index) List(ctx context.Context) ([]types.SessionRecord, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT id, created_at, files, bytes, downloads, last_download_at FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []types.SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Expired returns the ids of sessions created before cutoff.
func (i *Index) Expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE created_at < ? ORDER BY created_at`, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("querying expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the entry for id. Deleting an unknown id is not an error.
func (i *Index) Delete(ctx context.Context, id string) error {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (types.SessionRecord, error) {
	var (
		rec     types.SessionRecord
		created int64
		last    sql.NullInt64
	)
	if err := s.Scan(&rec.ID, &created, &rec.Files, &rec.Bytes, &rec.Downloads, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning session: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	if last.Valid {
		rec.LastDownloadAt = time.Unix(0, last.Int64).UTC()
	}
	return rec, nil
}
