// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/blend"
)

// texture stores straight-alpha RGBA as float32.
type texture struct {
	width, height int
	format        gputypes.TextureFormat
	pix           []float32
}

func newTexture(width, height int, format gputypes.TextureFormat) *texture {
	return &texture{width: width, height: height, format: format, pix: make([]float32, width*height*4)}
}

// at returns the texel at integer coordinates, clamped to the edge.
func (t *texture) at(x, y int) blend.RGBA {
	x = min(max(x, 0), t.width-1)
	y = min(max(y, 0), t.height-1)
	i := (y*t.width + x) * 4
	return blend.RGBA{R: float64(t.pix[i]), G: float64(t.pix[i+1]), B: float64(t.pix[i+2]), A: float64(t.pix[i+3])}
}

// sample filters bilinearly at normalized coordinates with clamp-to-edge
// addressing.
func (t *texture) sample(u, v float64) blend.RGBA {
	if t == nil || t.width == 0 || t.height == 0 {
		return blend.RGBA{}
	}
	fx := u*float64(t.width) - 0.5
	fy := v*float64(t.height) - 0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	ax, ay := fx-float64(x0), fy-float64(y0)

	c00, c10 := t.at(x0, y0), t.at(x0+1, y0)
	c01, c11 := t.at(x0, y0+1), t.at(x0+1, y0+1)
	return lerp(lerp(c00, c10, ax), lerp(c01, c11, ax), ay)
}

func lerp(a, b blend.RGBA, t float64) blend.RGBA {
	return blend.RGBA{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

func (t *texture) set(x, y int, c blend.RGBA) {
	if !backend.IsFloat(t.format) {
		c = c.Clamp()
	}
	i := (y*t.width + x) * 4
	t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3] = float32(c.R), float32(c.G), float32(c.B), float32(c.A)
}

// upload replaces the contents with RGBA8 pixels.
func (t *texture) upload(pixels []byte) {
	for i, b := range pixels[:len(t.pix)] {
		t.pix[i] = float32(b) / 255
	}
}

// encode returns RGBA8 bytes for 8-bit formats and little-endian float32
// otherwise. BGRA targets are returned in RGBA order.
func (t *texture) encode() []byte {
	if backend.IsFloat(t.format) {
		out := make([]byte, len(t.pix)*4)
		for i, v := range t.pix {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out
	}
	out := make([]byte, len(t.pix))
	for i, v := range t.pix {
		out[i] = toUint8(v)
	}
	return out
}

func toUint8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
