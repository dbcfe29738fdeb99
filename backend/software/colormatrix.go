// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import "github.com/gogpu/fxgraph/blend"

// colorMatrix is a 4x5 row-major transform on normalized straight-alpha
// color:
//
//	[R']   [m00 m01 m02 m03 m04]   [R]
//	[G'] = [m10 m11 m12 m13 m14] * [G]
//	[B']   [m20 m21 m22 m23 m24]   [B]
//	[A']   [m30 m31 m32 m33 m34]   [A]
//	                               [1]
type colorMatrix [20]float64

var identityMatrix = colorMatrix{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// brightnessMatrix adds amount to each color channel.
func brightnessMatrix(amount float64) colorMatrix {
	m := identityMatrix
	m[4], m[9], m[14] = amount, amount, amount
	return m
}

// contrastMatrix scales color channels around mid-gray.
func contrastMatrix(factor float64) colorMatrix {
	offset := 0.5 * (1 - factor)
	return colorMatrix{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	}
}

// saturationMatrix blends between Rec. 709 luminance (0) and identity (1).
func saturationMatrix(factor float64) colorMatrix {
	const (
		lumR = 0.2126
		lumG = 0.7152
		lumB = 0.0722
	)
	inv := 1 - factor
	return colorMatrix{
		lumR*inv + factor, lumG * inv, lumB * inv, 0, 0,
		lumR * inv, lumG*inv + factor, lumB * inv, 0, 0,
		lumR * inv, lumG * inv, lumB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// invertMatrix blends between the color (0) and its inverse (1).
func invertMatrix(amount float64) colorMatrix {
	s := 1 - 2*amount
	return colorMatrix{
		s, 0, 0, 0, amount,
		0, s, 0, 0, amount,
		0, 0, s, 0, amount,
		0, 0, 0, 1, 0,
	}
}

// opacityMatrix multiplies alpha.
func opacityMatrix(factor float64) colorMatrix {
	m := identityMatrix
	m[18] = factor
	return m
}

func (m *colorMatrix) apply(c blend.RGBA) blend.RGBA {
	return blend.RGBA{
		R: m[0]*c.R + m[1]*c.G + m[2]*c.B + m[3]*c.A + m[4],
		G: m[5]*c.R + m[6]*c.G + m[7]*c.B + m[8]*c.A + m[9],
		B: m[10]*c.R + m[11]*c.G + m[12]*c.B + m[13]*c.A + m[14],
		A: m[15]*c.R + m[16]*c.G + m[17]*c.B + m[18]*c.A + m[19],
	}
}
