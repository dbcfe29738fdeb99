// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/shader"
)

// coordStep is one prepared coordinate stage.
type coordStep struct {
	m      f64.Aff3
	inside func(x, y float64) bool
}

// ExecutePass implements backend.Backend.
func (b *Backend) ExecutePass(ctx context.Context, inv *backend.Invocation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return backend.ErrClosed
	}

	inputs := make([]*texture, len(inv.Inputs))
	for i, h := range inv.Inputs {
		t, err := b.lookupLocked(h)
		if err != nil {
			return fmt.Errorf("software: %s input %d: %w", inv.Label, i, err)
		}
		inputs[i] = t
	}

	out, err := b.targetLocked(inv)
	if err != nil {
		return err
	}
	dst := out
	for _, in := range inputs {
		if in == out {
			dst = newTexture(out.width, out.height, out.format)
			break
		}
	}

	if err := render(ctx, inv, inputs, dst, b.workers); err != nil {
		return fmt.Errorf("software: %s: %w", inv.Label, err)
	}
	if dst != out {
		copy(out.pix, dst.pix)
	}
	return nil
}

// targetLocked resolves the output, sizing the screen on demand.
func (b *Backend) targetLocked(inv *backend.Invocation) (*texture, error) {
	if inv.Output != backend.Screen {
		return b.lookupLocked(inv.Output)
	}
	if err := backend.ValidateSize(b.caps, inv.Width, inv.Height, gputypes.TextureFormatRGBA8Unorm); err != nil {
		return nil, err
	}
	if b.screen == nil || b.screen.width != inv.Width || b.screen.height != inv.Height {
		b.screen = newTexture(inv.Width, inv.Height, gputypes.TextureFormatRGBA8Unorm)
	}
	return b.screen, nil
}

// render evaluates the fused program for every pixel of dst.
func render(ctx context.Context, inv *backend.Invocation, inputs []*texture, dst *texture, workers int) error {
	stages := inv.Program.Stages
	dim := [2]float64{float64(dst.width), float64(dst.height)}
	if len(inputs) > 0 {
		dim = [2]float64{float64(inputs[0].width), float64(inputs[0].height)}
	}

	var (
		coords   []coordStep
		colors   []colorOp
		variance float64
		blurred  bool
	)
	for i := len(stages) - 1; i >= 0; i-- {
		s := stages[i]
		k, ok := kernels[s.Kernel]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedKernel, s.Kernel)
		}
		if s.Phase != k.phase {
			return fmt.Errorf("%w: %q runs in the %v phase, not %v", ErrUnsupportedKernel, s.Kernel, k.phase, s.Phase)
		}
		if k.phase != shader.PhaseCoord {
			continue
		}
		u := inv.Uniforms.ForStage(i, len(stages))
		step := coordStep{m: f64.Aff3{1, 0, 0, 0, 1, 0}}
		if k.affine != nil {
			step.m = k.affine(u, dim)
		}
		if k.inside != nil {
			step.inside = func(x, y float64) bool { return k.inside(u, x, y) }
		}
		coords = append(coords, step)
	}
	for i, s := range stages {
		k := kernels[s.Kernel]
		u := inv.Uniforms.ForStage(i, len(stages))
		switch {
		case k.phase == shader.PhaseSample:
			r := k.radius(u)
			variance += r * r
			blurred = true
		case k.phase == shader.PhaseColor && k.color != nil:
			colors = append(colors, k.color(u))
		}
	}

	var primary *texture
	if len(inputs) > 0 {
		primary = inputs[0]
		if blurred {
			var err error
			if primary, err = gaussianBlur(ctx, primary, math.Sqrt(variance), workers); err != nil {
				return err
			}
		}
	}

	w, h := float64(dst.width), float64(dst.height)
	return forBands(ctx, dst.height, workers, func(y0, y1 int) {
		frag := fragment{inputs: inputs}
		for py := y0; py < y1; py++ {
			for px := 0; px < dst.width; px++ {
				x, y := (float64(px)+0.5)/w, (float64(py)+0.5)/h
				visible := true
				for _, c := range coords {
					x, y = apply(c.m, x, y)
					if c.inside != nil && !c.inside(x, y) {
						visible = false
					}
				}
				var color blend.RGBA
				if primary != nil {
					color = primary.sample(x, y)
				}
				frag.u, frag.v = x, y
				for _, op := range colors {
					color = op(color, &frag)
				}
				if !visible {
					color = blend.RGBA{}
				}
				dst.set(px, py, color)
			}
		}
	})
}
