// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"image"

	"golang.org/x/image/draw"
)

// ImageFrame adapts an NRGBA image to Frame.
type ImageFrame struct {
	img *image.NRGBA
}

// NewImageFrame converts img to straight-alpha RGBA8. NRGBA images with
// tight rows are used without copying.
func NewImageFrame(img image.Image) *ImageFrame {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return &ImageFrame{img: n}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &ImageFrame{img: dst}
}

// NewSolidFrame returns a frame filled with one straight-alpha color.
func NewSolidFrame(width, height int, r, g, b, a uint8) *ImageFrame {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return &ImageFrame{img: img}
}

func (f *ImageFrame) Width() int     { return f.img.Rect.Dx() }
func (f *ImageFrame) Height() int    { return f.img.Rect.Dy() }
func (f *ImageFrame) Pixels() []byte { return f.img.Pix }

// Image returns the underlying image.
func (f *ImageFrame) Image() *image.NRGBA { return f.img }
