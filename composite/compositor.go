// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"go.uber.org/multierr"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/resource"
	"github.com/gogpu/fxgraph/shader"
)

// Layer is one image to composite.
type Layer struct {
	// Source is a texture holding the layer, typically the output of a
	// render executor. It is sampled over the full canvas.
	Source backend.Handle

	// Opacity in [0, 1]. Values outside are clamped; zero skips the layer.
	Opacity float64

	Mode blend.Mode

	// Z orders layers back to front. Equal values keep slice order.
	Z int

	// Label names the layer in logs and pass labels.
	Label string
}

// Settings describe the canvas.
type Settings struct {
	Width, Height int

	// Background is the straight RGBA fill under all layers.
	Background [4]float64

	// Format of the result. Undefined selects RGBA8Unorm.
	Format gputypes.TextureFormat
}

func (s Settings) format() gputypes.TextureFormat {
	if s.Format == gputypes.TextureFormatUndefined {
		return gputypes.TextureFormatRGBA8Unorm
	}
	return s.Format
}

// Compositor draws layers through a backend, taking its accumulator
// textures from a pool.
type Compositor struct {
	backend backend.Backend
	pool    *resource.Pool

	fill     shader.Program
	fillSrc  string
	blend    shader.Program
	blendSrc string
}

// New creates a compositor.
func New(b backend.Backend, pool *resource.Pool) *Compositor {
	c := &Compositor{
		backend: b,
		pool:    pool,
		fill:    shader.Single(blend.FillKernel, "background", blend.FillDescriptor()),
		blend:   shader.Single(blend.Kernel, "layer", blend.Descriptor()),
	}
	c.fillSrc = c.fill.Source(0)
	c.blendSrc = c.blend.Source(2)
	return c
}

// Ordered returns the layers that will be drawn, in drawing order, with
// opacity clamped.
func Ordered(layers []Layer) []Layer {
	out := make([]Layer, 0, len(layers))
	for _, l := range layers {
		l.Opacity = min(max(l.Opacity, 0), 1)
		if l.Opacity == 0 {
			continue
		}
		out = append(out, l)
	}
	slices.SortStableFunc(out, func(a, b Layer) int { return cmp.Compare(a.Z, b.Z) })
	return out
}

// Compose draws layers into a pooled texture and returns it. The caller
// hands it back with Release.
func (c *Compositor) Compose(ctx context.Context, layers []Layer, s Settings) (*resource.Texture, error) {
	return c.compose(ctx, layers, s, false)
}

// ComposeToScreen draws layers to the screen and presents it.
func (c *Compositor) ComposeToScreen(ctx context.Context, layers []Layer, s Settings) error {
	if _, err := c.compose(ctx, layers, s, true); err != nil {
		return err
	}
	return c.backend.Present(ctx)
}

// Release returns a texture obtained from Compose to the pool.
func (c *Compositor) Release(tex *resource.Texture) error {
	return c.pool.Release(tex)
}

func (c *Compositor) compose(ctx context.Context, layers []Layer, s Settings, toScreen bool) (_ *resource.Texture, err error) {
	format := s.format()
	if err := backend.ValidateSize(c.backend.Capabilities(), s.Width, s.Height, format); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	ordered := Ordered(layers)

	// acc is the texture holding the composite so far; nil once it has
	// been handed to the caller or when drawing to the screen.
	var acc *resource.Texture
	defer func() {
		if err != nil && acc != nil {
			err = multierr.Append(err, c.pool.Release(acc))
		}
	}()

	target := func(last bool) (backend.Handle, *resource.Texture, error) {
		if toScreen && last {
			return backend.Screen, nil, nil
		}
		tex, err := c.pool.Acquire(s.Width, s.Height, format)
		if err != nil {
			return backend.InvalidHandle, nil, fmt.Errorf("composite: %w", err)
		}
		return tex.Handle(), tex, nil
	}

	out, next, err := target(len(ordered) == 0)
	if err != nil {
		return nil, err
	}
	acc = next
	bg := s.Background
	err = c.backend.ExecutePass(ctx, &backend.Invocation{
		Label:    "background",
		Program:  c.fill,
		Source:   c.fillSrc,
		Output:   out,
		Uniforms: shader.Uniforms{{Name: "color", Value: []float64{bg[0], bg[1], bg[2], bg[3]}}},
		Width:    s.Width,
		Height:   s.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("composite: background: %w", err)
	}

	for i, l := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, next, err := target(i == len(ordered)-1)
		if err != nil {
			return nil, err
		}
		label := l.Label
		if label == "" {
			label = fmt.Sprintf("layer%d", i)
		}
		slogger().Debug("composite: layer",
			"index", i, "label", label, "z", l.Z, "mode", l.Mode.String(), "opacity", l.Opacity)

		err = c.backend.ExecutePass(ctx, &backend.Invocation{
			Label:   label,
			Program: c.blend,
			Source:  c.blendSrc,
			Inputs:  []backend.Handle{acc.Handle(), l.Source},
			Output:  out,
			Uniforms: shader.Uniforms{
				{Name: "mode", Value: float64(l.Mode)},
				{Name: "opacity", Value: l.Opacity},
			},
			Width:  s.Width,
			Height: s.Height,
		})
		if err != nil {
			if next != nil {
				err = multierr.Append(err, c.pool.Release(next))
			}
			return nil, fmt.Errorf("composite: %s: %w", label, err)
		}
		if err := c.pool.Release(acc); err != nil {
			acc = next
			return nil, fmt.Errorf("composite: %w", err)
		}
		acc = next
	}

	if toScreen {
		return nil, nil
	}
	tex := acc
	acc = nil
	return tex, nil
}
