// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"go.uber.org/multierr"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/resource"
)

var (
	// ErrNoPasses is returned when a frame is executed without a plan.
	ErrNoPasses = errors.New("render: no passes")

	// ErrMissingSource is returned when a pass reads a source node that the
	// frame context provides no image for.
	ErrMissingSource = errors.New("render: missing source frame")

	// ErrUnresolvedInput is returned when a pass reads an intermediate that
	// no earlier pass produced.
	ErrUnresolvedInput = errors.New("render: intermediate not produced")
)

// FrameContext describes one frame.
type FrameContext struct {
	// Width and Height are the viewport. Every intermediate has this size.
	Width, Height int

	// Source is used for any source node not listed in Sources.
	Source backend.Frame

	// Sources maps source node ids to their images.
	Sources map[string]backend.Frame

	// Textures maps source node ids to textures the caller already owns,
	// for example the output of another executor. They take precedence
	// over Sources and are never released by the frame.
	Textures map[string]backend.Handle
}

// frame returns the image for a source id. Intermediate ids never fall back
// to Source.
func (fc FrameContext) frame(id string) backend.Frame {
	if f, ok := fc.Sources[id]; ok && f != nil {
		return f
	}
	if compile.IsTextureID(id) {
		return nil
	}
	return fc.Source
}

// PassError reports the pass a frame failed on.
type PassError struct {
	Index  int
	PassID string
	Err    error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("render: pass %d (%s): %v", e.Index, e.PassID, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// LastUses maps every resource id read by passes to the index of the last
// pass reading it.
func LastUses(passes []compile.Pass) map[string]int {
	last := make(map[string]int)
	for i, p := range passes {
		for _, id := range p.Inputs {
			last[id] = i
		}
	}
	return last
}

// Run executes passes to the screen and presents the result. Intermediates
// use RGBA16Float when the backend supports it and RGBA8Unorm otherwise.
func Run(ctx context.Context, b backend.Backend, pool *resource.Pool, passes []compile.Pass, fc FrameContext) error {
	p := newPlan(passes, 0)
	if err := p.run(ctx, b, pool, intermediateFormat(b.Capabilities()), fc, backend.Screen); err != nil {
		return err
	}
	return b.Present(ctx)
}

func intermediateFormat(c backend.Capabilities) gputypes.TextureFormat {
	if c.Float16 {
		return gputypes.TextureFormatRGBA16Float
	}
	return gputypes.TextureFormatRGBA8Unorm
}

// plan is an immutable pass list with its assembled shader sources.
type plan struct {
	version uint64
	passes  []compile.Pass
	sources []string
	last    map[string]int
}

func newPlan(passes []compile.Pass, version uint64) *plan {
	p := &plan{
		version: version,
		passes:  make([]compile.Pass, len(passes)),
		sources: make([]string, len(passes)),
		last:    LastUses(passes),
	}
	for i, pass := range passes {
		p.passes[i] = pass.Clone()
		p.sources[i] = pass.Source()
	}
	return p
}

// binding is a texture held by a running frame.
type binding struct {
	handle backend.Handle
	tex    *resource.Texture
	owned  bool
}

type frame struct {
	b     backend.Backend
	pool  *resource.Pool
	fc    FrameContext
	bound map[string]binding
}

func (p *plan) run(ctx context.Context, b backend.Backend, pool *resource.Pool,
	format gputypes.TextureFormat, fc FrameContext, target backend.Handle) (err error) {
	if len(p.passes) == 0 {
		return ErrNoPasses
	}
	if err := backend.ValidateSize(b.Capabilities(), fc.Width, fc.Height, format); err != nil {
		return fmt.Errorf("render: viewport: %w", err)
	}

	f := &frame{b: b, pool: pool, fc: fc, bound: make(map[string]binding)}
	defer func() {
		err = multierr.Append(err, f.releaseAll())
	}()

	for i, pass := range p.passes {
		if err := ctx.Err(); err != nil {
			return &PassError{Index: i, PassID: pass.ID, Err: err}
		}

		inv := &backend.Invocation{
			Label:    pass.ID,
			Program:  pass.Program,
			Source:   p.sources[i],
			Inputs:   make([]backend.Handle, 0, len(pass.Inputs)),
			Uniforms: pass.Uniforms,
			Width:    fc.Width,
			Height:   fc.Height,
		}
		for _, id := range pass.Inputs {
			h, err := f.input(id)
			if err != nil {
				return &PassError{Index: i, PassID: pass.ID, Err: err}
			}
			inv.Inputs = append(inv.Inputs, h)
		}

		if pass.ToScreen() {
			inv.Output = target
		} else {
			tex, err := pool.Acquire(fc.Width, fc.Height, format)
			if err != nil {
				return &PassError{Index: i, PassID: pass.ID, Err: err}
			}
			f.bound[pass.Output] = binding{handle: tex.Handle(), tex: tex}
			inv.Output = tex.Handle()
		}

		slogger().Debug("render: pass",
			"index", i, "id", pass.ID, "stages", pass.Program.Len(),
			"inputs", pass.Inputs, "output", pass.Output)

		if err := b.ExecutePass(ctx, inv); err != nil {
			return &PassError{Index: i, PassID: pass.ID, Err: err}
		}

		for _, id := range pass.Inputs {
			if p.last[id] != i {
				continue
			}
			if err := f.release(id); err != nil {
				return &PassError{Index: i, PassID: pass.ID, Err: err}
			}
		}
		if _, read := p.last[pass.Output]; !read && !pass.ToScreen() {
			if err := f.release(pass.Output); err != nil {
				return &PassError{Index: i, PassID: pass.ID, Err: err}
			}
		}
	}
	return nil
}

// input resolves a resource id, importing or uploading source frames on
// first use.
func (f *frame) input(id string) (backend.Handle, error) {
	if bd, ok := f.bound[id]; ok {
		return bd.handle, nil
	}
	if h, ok := f.fc.Textures[id]; ok {
		f.bound[id] = binding{handle: h}
		return h, nil
	}

	src := f.fc.frame(id)
	switch {
	case src == nil && compile.IsTextureID(id):
		return backend.InvalidHandle, fmt.Errorf("%w: %q", ErrUnresolvedInput, id)
	case src == nil:
		return backend.InvalidHandle, fmt.Errorf("%w: %q", ErrMissingSource, id)
	}
	if f.b.Capabilities().ExternalImport {
		h, err := f.b.ImportFrame(src)
		if err != nil {
			return backend.InvalidHandle, fmt.Errorf("render: import %q: %w", id, err)
		}
		f.bound[id] = binding{handle: h, owned: true}
		return h, nil
	}

	tex, err := f.pool.Acquire(src.Width(), src.Height(), gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return backend.InvalidHandle, err
	}
	if err := f.b.UploadPixels(tex.Handle(), src.Pixels()); err != nil {
		return backend.InvalidHandle, multierr.Append(
			fmt.Errorf("render: upload %q: %w", id, err), f.pool.Release(tex))
	}
	f.bound[id] = binding{handle: tex.Handle(), tex: tex}
	return tex.Handle(), nil
}

func (f *frame) release(id string) error {
	bd, ok := f.bound[id]
	if !ok {
		return nil
	}
	delete(f.bound, id)
	switch {
	case bd.tex != nil:
		return f.pool.Release(bd.tex)
	case bd.owned:
		return f.b.DestroyTexture(bd.handle)
	}
	return nil
}

func (f *frame) releaseAll() error {
	var err error
	for id := range f.bound {
		err = multierr.Append(err, f.release(id))
	}
	return err
}
