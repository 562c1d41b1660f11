// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package heic implements the HEIC/HEIF to JPEG conversion primitive.
// Decoding is delegated to a pluggable Decoder; this package normalizes the
// decoded color model and encodes the JPEG. It has no side effects beyond
// returning bytes: writing output is the caller's responsibility.
package heic

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned by the conversion primitive. Callers match them with
// errors.Is; decoder and encoder failures are wrapped with detail.
var (
	ErrEmptyFile            = errors.New("empty file")
	ErrDecode               = errors.New("cannot decode image")
	ErrEncode               = errors.New("cannot encode JPEG")
	ErrUnsupportedExtension = errors.New("not a HEIC/HEIF file")
)

// extensions is the allow-list of input extensions, lowercase.
var extensions = map[string]bool{
	".heic": true,
	".heif": true,
}

// IsHEIC reports whether name carries a .heic or .heif extension, ignoring
// case. It does not inspect file content.
func IsHEIC(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// JPEGName replaces the extension of name's final element with ".jpg".
func JPEGName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
}

// Decoder turns HEIC/HEIF bytes into an image. Different backends
// (in-process WASM, ImageMagick) implement this interface.
type Decoder interface {
	// Decode reads a complete HEIC/HEIF container from r.
	Decode(r io.Reader) (image.Image, error)
}

// Converter applies decode, color normalization, and JPEG encoding.
type Converter struct {
	decoder Decoder
}

// NewConverter returns a Converter backed by the given decoder.
func NewConverter(d Decoder) *Converter {
	return &Converter{decoder: d}
}

// Convert decodes data and re-encodes it as JPEG at the given quality
// (1-100). An empty input fails with ErrEmptyFile before the decoder runs.
// Images with an alpha channel or a palette are flattened to opaque RGB;
// alpha is dropped, not composited.
func (c *Converter) Convert(data []byte, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	img, err := c.decoder.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: decoder returned no image", ErrDecode)
	}

	return Encode(Normalize(img), quality)
}

// ConvertReader reads r fully and converts the result.
func (c *Converter) ConvertReader(r io.Reader, quality int) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return c.Convert(data, quality)
}

// ConvertFile reads the file at path and converts it.
func (c *Converter) ConvertFile(path string, quality int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c.Convert(data, quality)
}

// Encode writes img as JPEG at quality. The standard encoder clamps
// out-of-range quality values to 1..100.
func Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
