package types

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultQuality is the JPEG quality used when none is configured.
	DefaultQuality = 95

	// DefaultSubfolder is the directory created next to each source file
	// when BatchConfig.CreateSubfolder is set.
	DefaultSubfolder = "jpg files"

	// DefaultMaxUploadBytes caps a single /convert request body (500 MiB).
	DefaultMaxUploadBytes int64 = 500 << 20
)

// DecoderBackend selects the HEIC decoding implementation.
type DecoderBackend string

const (
	// DecoderNative decodes in-process with the WASM build of libheif.
	DecoderNative DecoderBackend = "native"

	// DecoderMagick pipes the image through an ImageMagick binary on PATH.
	DecoderMagick DecoderBackend = "magick"

	// DecoderAuto currently resolves to DecoderNative.
	DecoderAuto DecoderBackend = "auto"
)

// ConversionConfig holds settings shared by every entry point that calls
// the conversion primitive.
type ConversionConfig struct {
	// Quality is the JPEG quality on a 1-100 scale (default 95).
	Quality int `json:"quality" yaml:"quality"`

	// Decoder selects the decoding backend: native, magick, or auto.
	Decoder DecoderBackend `json:"decoder" yaml:"decoder"`
}

// EffectiveQuality returns Quality, or DefaultQuality when unset.
func (c ConversionConfig) EffectiveQuality() int {
	if c.Quality == 0 {
		return DefaultQuality
	}
	return c.Quality
}

// BatchConfig holds settings for the command-line batch driver.
type BatchConfig struct {
	ConversionConfig `yaml:",inline"`

	// Recursive descends into subdirectories of directory arguments.
	Recursive bool `json:"recursive" yaml:"recursive"`

	// OutputDir, when set, receives every output regardless of source location.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// CreateSubfolder writes outputs into a "jpg files" directory next to
	// each source instead of alongside it. Ignored when OutputDir is set.
	CreateSubfolder bool `json:"create_subfolder" yaml:"create_subfolder"`

	// Workers bounds the number of files converted concurrently (default 1).
	Workers int `json:"workers" yaml:"workers"`
}

// ServerConfig holds settings for the web session driver and its transport.
type ServerConfig struct {
	ConversionConfig `yaml:",inline"`

	// Addr is the listen address (e.g. ":5000").
	Addr string `json:"addr" yaml:"addr"`

	// TempDir is the root holding one subdirectory per session.
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	// MaxUploadBytes caps the size of a /convert request body.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// SessionTTL is how long a session survives before the reaper removes
	// it. Zero disables reaping.
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl"`

	// ReapInterval is the period between reaper sweeps.
	ReapInterval time.Duration `json:"reap_interval" yaml:"reap_interval"`
}

// DefaultTempDir returns the session root under the OS temp directory.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "heic_converter")
}
