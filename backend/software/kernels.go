// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/shader"
)

// fragment is the per-pixel state visible to color stages.
type fragment struct {
	u, v   float64
	inputs []*texture
}

type colorOp func(c blend.RGBA, f *fragment) blend.RGBA

// kernel is the CPU counterpart of one stage's shader code. Exactly one
// of the function fields is set, matching phase.
type kernel struct {
	phase shader.Phase

	// affine maps an output position to the sampled position. dim is the
	// primary input size in pixels.
	affine func(u shader.Uniforms, dim [2]float64) f64.Aff3

	// inside reports whether a position survives; false clears the mask.
	inside func(u shader.Uniforms, x, y float64) bool

	// radius is the blur radius in pixels contributed by a sample stage.
	radius func(u shader.Uniforms) float64

	// color prepares a per-pixel color operation.
	color func(u shader.Uniforms) colorOp
}

// kernels maps stage kernel names to their CPU implementations.
var kernels = map[string]kernel{
	"passthrough": {phase: shader.PhaseColor},
	"brightness":  matrixKernel(brightnessMatrix, 0),
	"contrast":    matrixKernel(contrastMatrix, 1),
	"saturation":  matrixKernel(saturationMatrix, 1),
	"opacity":     matrixKernel(opacityMatrix, 1),
	"invert":      matrixKernel(invertMatrix, 1),

	"blur":          {phase: shader.PhaseSample, radius: blurRadius},
	"gaussian-blur": {phase: shader.PhaseSample, radius: blurRadius},

	"scale":     {phase: shader.PhaseCoord, affine: scaleAffine},
	"rotate":    {phase: shader.PhaseCoord, affine: rotateAffine},
	"translate": {phase: shader.PhaseCoord, affine: translateAffine},
	"flip":      {phase: shader.PhaseCoord, affine: flipAffine},
	"crop":      {phase: shader.PhaseCoord, inside: cropInside},

	blend.Kernel:     {phase: shader.PhaseColor, color: blendOp},
	blend.FillKernel: {phase: shader.PhaseColor, color: fillOp},
}

func matrixKernel(build func(float64) colorMatrix, def float64) kernel {
	return kernel{
		phase: shader.PhaseColor,
		color: func(u shader.Uniforms) colorOp {
			m := build(u.Float("amount", def))
			return func(c blend.RGBA, _ *fragment) blend.RGBA { return m.apply(c) }
		},
	}
}

func blurRadius(u shader.Uniforms) float64 {
	return math.Max(u.Float("radius", 0), 0)
}

func scaleAffine(u shader.Uniforms, _ [2]float64) f64.Aff3 {
	f := u.Vector("factor", 2, 1)
	sx, sy := 1/nonZero(f[0]), 1/nonZero(f[1])
	return f64.Aff3{
		sx, 0, 0.5 - 0.5*sx,
		0, sy, 0.5 - 0.5*sy,
	}
}

func rotateAffine(u shader.Uniforms, dim [2]float64) f64.Aff3 {
	rad := u.Float("degrees", 0) * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	w, h := nonZero(dim[0]), nonZero(dim[1])
	a, b := c, s*h/w
	d, e := -s*w/h, c
	return f64.Aff3{
		a, b, 0.5 - 0.5*a - 0.5*b,
		d, e, 0.5 - 0.5*d - 0.5*e,
	}
}

func translateAffine(u shader.Uniforms, _ [2]float64) f64.Aff3 {
	off := u.Vector("offset", 2, 0)
	return f64.Aff3{
		1, 0, -off[0],
		0, 1, -off[1],
	}
}

func flipAffine(u shader.Uniforms, _ [2]float64) f64.Aff3 {
	m := f64.Aff3{1, 0, 0, 0, 1, 0}
	if u.Float("horizontal", 0) != 0 {
		m[0], m[2] = -1, 1
	}
	if u.Float("vertical", 0) != 0 {
		m[4], m[5] = -1, 1
	}
	return m
}

func cropInside(u shader.Uniforms, x, y float64) bool {
	r := u.Vector("rect", 4, 0)
	if r[2] == 0 && r[3] == 0 {
		r[2], r[3] = 1, 1
	}
	return x >= r[0] && y >= r[1] && x <= r[0]+r[2] && y <= r[1]+r[3]
}

func blendOp(u shader.Uniforms) colorOp {
	mode := blend.Mode(int(u.Float("mode", 0)))
	if !mode.Valid() {
		mode = blend.Normal
	}
	opacity := u.Float("opacity", 1)
	return func(c blend.RGBA, f *fragment) blend.RGBA {
		var top blend.RGBA
		if len(f.inputs) > 1 {
			top = f.inputs[1].sample(f.u, f.v)
		}
		return blend.Composite(c, top, mode, opacity)
	}
}

func fillOp(u shader.Uniforms) colorOp {
	v := u.Vector("color", 4, 0)
	c := blend.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
	return func(blend.RGBA, *fragment) blend.RGBA { return c }
}

func apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
