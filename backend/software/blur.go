// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// gaussianKernel returns a normalized 1D Gaussian of size
// 2*ceil(3*sigma)+1. sigma <= 0 yields the identity kernel.
func gaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	half := int(math.Ceil(sigma * 3))
	kernel := make([]float32, half*2+1)
	twoSigmaSq := 2 * sigma * sigma
	sum := 0.0
	for i := range kernel {
		x := float64(i - half)
		v := math.Exp(-(x * x) / twoSigmaSq)
		kernel[i] = float32(v)
		sum += v
	}
	inv := float32(1 / sum)
	for i := range kernel {
		kernel[i] *= inv
	}
	return kernel
}

// blurSigma maps a blur radius in pixels to the Gaussian's standard
// deviation. The radius covers three deviations, as in blur_sample.
func blurSigma(radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	return max(radius/3, 0.5)
}

// gaussianBlur returns a blurred copy of src using a separable two-pass
// convolution with edge extension. Color is weighted by alpha so
// transparent texels do not darken their neighbors.
func gaussianBlur(ctx context.Context, src *texture, radius float64, workers int) (*texture, error) {
	kernel := gaussianKernel(blurSigma(radius))
	if len(kernel) == 1 {
		return src, nil
	}
	w, h := src.width, src.height
	pre := make([]float32, len(src.pix))
	for i := 0; i < len(pre); i += 4 {
		a := src.pix[i+3]
		pre[i], pre[i+1], pre[i+2], pre[i+3] = src.pix[i]*a, src.pix[i+1]*a, src.pix[i+2]*a, a
	}

	temp := make([]float32, len(pre))
	if err := forBands(ctx, h, workers, func(y0, y1 int) {
		convolve(pre, temp, w, h, y0, y1, kernel, true)
	}); err != nil {
		return nil, err
	}

	out := newTexture(w, h, src.format)
	if err := forBands(ctx, h, workers, func(y0, y1 int) {
		convolve(temp, out.pix, w, h, y0, y1, kernel, false)
	}); err != nil {
		return nil, err
	}
	for i := 0; i < len(out.pix); i += 4 {
		if a := out.pix[i+3]; a > 0 {
			out.pix[i] /= a
			out.pix[i+1] /= a
			out.pix[i+2] /= a
		}
	}
	return out, nil
}

// convolve applies a 1D kernel along rows or columns for output rows
// [y0, y1), extending edges.
func convolve(src, dst []float32, w, h, y0, y1 int, kernel []float32, horizontal bool) {
	half := len(kernel) / 2
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			var r, g, b, a float32
			for k, weight := range kernel {
				var idx int
				if horizontal {
					kx := min(max(x+k-half, 0), w-1)
					idx = (y*w + kx) * 4
				} else {
					ky := min(max(y+k-half, 0), h-1)
					idx = (ky*w + x) * 4
				}
				r += src[idx] * weight
				g += src[idx+1] * weight
				b += src[idx+2] * weight
				a += src[idx+3] * weight
			}
			i := (y*w + x) * 4
			dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, a
		}
	}
}

// forBands splits rows [0, height) into bands processed concurrently.
func forBands(ctx context.Context, height, workers int, fn func(y0, y1 int)) error {
	workers = max(workers, 1)
	band := max((height+workers-1)/workers, 1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += band {
		y1 := min(y0+band, height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(y0, y1)
			return nil
		})
	}
	return g.Wait()
}
