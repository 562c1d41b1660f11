// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConversionStatus indicates the outcome of converting one input file.
type ConversionStatus string

const (
	ConversionDone    ConversionStatus = "converted"
	ConversionSkipped ConversionStatus = "skipped"
	ConversionFailed  ConversionStatus = "failed"
)

// Upload is one file received from a client, held fully in memory.
type Upload struct {
	// Name is the client-supplied filename. It may be empty.
	Name string

	// Data is the raw file content.
	Data []byte
}

// ConvertedFile records a successful conversion.
type ConvertedFile struct {
	// Original is the input filename as supplied.
	Original string `json:"original" yaml:"original"`

	// Converted is the output filename (unique within its batch).
	Converted string `json:"converted" yaml:"converted"`

	// Size is the output size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// FailedFile records a conversion that did not produce output.
type FailedFile struct {
	// Name is the input filename as supplied.
	Name string `json:"name" yaml:"name"`

	// Error is a human-readable reason.
	Error string `json:"error" yaml:"error"`
}

// SessionResult is the outcome of one web conversion request. Converted
// and Failed keep input order.
type SessionResult struct {
	SessionID string          `json:"session_id" yaml:"session_id"`
	Converted []ConvertedFile `json:"converted" yaml:"converted"`
	Failed    []FailedFile    `json:"failed" yaml:"failed"`
}

// TotalConverted returns the number of successful conversions.
func (r SessionResult) TotalConverted() int { return len(r.Converted) }

// TotalFailed returns the number of failed conversions.
func (r SessionResult) TotalFailed() int { return len(r.Failed) }
