// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package heic

import (
	"fmt"
	"image"
	"io"

	libheif "github.com/gen2brain/heic"

	"github.com/pdiddy/heic-converter/pkg/types"
)

// NativeDecoder decodes HEIC/HEIF in-process using libheif compiled to
// WASM. It needs no external binaries.
type NativeDecoder struct{}

// Decode implements Decoder.
func (NativeDecoder) Decode(r io.Reader) (image.Image, error) {
	return libheif.Decode(r)
}

// DecodeConfig returns the dimensions and color model without decoding
// the pixel data.
func (NativeDecoder) DecodeConfig(r io.Reader) (image.Config, error) {
	return libheif.DecodeConfig(r)
}

// ToolDecoder is satisfied by external decoding tools (see package
// imagetool). Declared here so NewDecoder can accept a lookup function
// without importing the tool package.
type ToolDecoder interface {
	Decoder
	Name() string
}

// NewDecoder returns the decoder selected by backend. detectTool is called
// only for DecoderMagick.
func NewDecoder(backend types.DecoderBackend, detectTool func() (ToolDecoder, error)) (Decoder, error) {
	switch backend {
	case "", types.DecoderAuto, types.DecoderNative:
		return NativeDecoder{}, nil
	case types.DecoderMagick:
		if detectTool == nil {
			return nil, fmt.Errorf("decoder %q: no tool detector configured", backend)
		}
		tool, err := detectTool()
		if err != nil {
			return nil, fmt.Errorf("decoder %q: %w", backend, err)
		}
		return tool, nil
	default:
		return nil, fmt.Errorf("unsupported decoder %q: use native, magick, or auto", backend)
	}
}
