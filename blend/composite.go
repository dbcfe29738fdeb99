// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package blend

// RGBA is a straight-alpha color with components in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// Premultiplied returns the color with RGB scaled by alpha.
func (c RGBA) Premultiplied() RGBA {
	return RGBA{R: c.R * c.A, G: c.G * c.A, B: c.B * c.A, A: c.A}
}

// Clamp returns the color with every component clamped to [0, 1].
func (c RGBA) Clamp() RGBA {
	return RGBA{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: clamp01(c.A)}
}

// Composite draws layer onto base. Opacity is applied to the layer color
// before the blend mode: the mode sees mix(Cb, Cs, opacity), and the result
// is composited "over" base with the premultiplied formula.
//
// The blend-mode result is weighted by the backdrop alpha,
// Cs' = (1 - Ab) * Cs + Ab * B(Cb, mix(Cb, Cs, opacity)), and the source
// alpha is As * (opacity + (1 - opacity) * Ab). Over an opaque backdrop
// this gives B(Cb, mix(Cb, Cs, opacity)); over a transparent one the layer
// with alpha As * opacity. Opacity 0 leaves base unchanged.
func Composite(base, layer RGBA, mode Mode, opacity float64) RGBA {
	o := clamp01(opacity)
	if o == 0 {
		return base
	}
	fn := Func(mode)
	ab := clamp01(base.A)
	channel := func(b, s float64) float64 {
		return (1-ab)*s + ab*fn(b, b+(s-b)*o)
	}
	src := RGBA{
		R: channel(base.R, layer.R),
		G: channel(base.G, layer.G),
		B: channel(base.B, layer.B),
		A: clamp01(layer.A) * (o + (1-o)*ab),
	}
	return Over(src, base)
}

// Over composites src over dst with the premultiplied Porter-Duff formula
// and returns a straight-alpha result.
func Over(src, dst RGBA) RGBA {
	sa := clamp01(src.A)
	da := clamp01(dst.A)
	outA := sa + da*(1-sa)
	if outA <= 0 {
		return RGBA{}
	}
	inv := 1 - sa
	return RGBA{
		R: (src.R*sa + dst.R*da*inv) / outA,
		G: (src.G*sa + dst.G*da*inv) / outA,
		B: (src.B*sa + dst.B*da*inv) / outA,
		A: outA,
	}
}

// Under composites src beneath dst.
func Under(src, dst RGBA) RGBA {
	return Over(dst, src)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
