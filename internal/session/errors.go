// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"errors"

	"github.com/pdiddy/heic-converter/internal/heic"
)

var (
	// ErrNoInput means the request carried no files, or only unnamed ones.
	ErrNoInput = errors.New("no files selected")

	// ErrNoFilesConverted means every file in a non-empty request failed.
	ErrNoFilesConverted = errors.New("no files were converted")

	// ErrSessionNotFound means no session directory exists for the token,
	// including tokens that are not well formed.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrEmptySession means the session directory holds no files.
	ErrEmptySession = errors.New("no files to download")
)

// failureReason renders a per-file error for the failure list.
func failureReason(err error) string {
	switch {
	case errors.Is(err, heic.ErrUnsupportedExtension):
		return "Not a HEIC/HEIF file"
	case errors.Is(err, heic.ErrEmptyFile):
		return "Empty file"
	default:
		return err.Error()
	}
}
