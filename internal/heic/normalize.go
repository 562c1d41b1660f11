// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package heic

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// hasAlphaOrPalette reports whether img's color model carries an alpha
// channel or a palette.
func hasAlphaOrPalette(img image.Image) bool {
	switch img.ColorModel() {
	case color.RGBAModel, color.RGBA64Model,
		color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model:
		return true
	}
	_, paletted := img.ColorModel().(color.Palette)
	return paletted
}

// Normalize returns img unchanged unless its color model carries alpha or a
// palette. Otherwise it returns an opaque copy holding the straight
// (un-premultiplied) RGB values of each pixel with alpha discarded.
// Fully transparent pixels have no color information and become black.
func Normalize(img image.Image) image.Image {
	if !hasAlphaOrPalette(img) {
		return img
	}

	var dst *image.NRGBA
	if src, ok := img.(*image.NRGBA); ok {
		dst = &image.NRGBA{
			Pix:    append([]byte(nil), src.Pix...),
			Stride: src.Stride,
			Rect:   src.Rect,
		}
	} else {
		b := img.Bounds()
		dst = image.NewNRGBA(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
	}

	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
