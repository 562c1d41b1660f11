// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for heic-converter: the
// configuration values handed to each driver at startup, per-file
// conversion results, and session records kept by the session index.
package types

import "time"

// SessionRecord is the index entry for one web session.
type SessionRecord struct {
	// ID is the session token; it also names the session directory.
	ID string `json:"id" yaml:"id"`

	// CreatedAt is when the first file of the session was written.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Files is the number of converted files stored in the session.
	Files int `json:"files" yaml:"files"`

	// Bytes is the total size of the converted files.
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// Downloads counts archive builds for the session.
	Downloads int `json:"downloads" yaml:"downloads"`

	// LastDownloadAt is the time of the most recent archive build, or the
	// zero time when the session was never downloaded.
	LastDownloadAt time.Time `json:"last_download_at,omitzero" yaml:"last_download_at,omitempty"`
}
