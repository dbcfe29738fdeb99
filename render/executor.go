// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"go.uber.org/multierr"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/graph"
	"github.com/gogpu/fxgraph/resource"
	"github.com/gogpu/fxgraph/shader"
)

// Option configures an Executor.
type Option func(*Executor)

// WithCompiler sets the compiler used by Recompile.
func WithCompiler(c *compile.Compiler) Option {
	return func(e *Executor) {
		e.compiler = c
	}
}

// WithMerger sets the merger used by Recompile.
func WithMerger(m *compile.Merger) Option {
	return func(e *Executor) {
		e.merger = m
	}
}

// WithFormat overrides the intermediate texture format.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(e *Executor) {
		e.format = f
	}
}

// WithValidator makes SetPasses and Recompile reject plans whose shaders
// fail WGSL validation.
func WithValidator(v *shader.Validator) Option {
	return func(e *Executor) {
		e.validator = v
	}
}

// Executor runs the active plan once per frame.
//
// Execute may be called concurrently with Recompile and SetPasses. Frames
// themselves must not overlap, since backends accept calls from one
// goroutine at a time.
type Executor struct {
	backend   backend.Backend
	pool      *resource.Pool
	compiler  *compile.Compiler
	merger    *compile.Merger
	validator *shader.Validator
	format    gputypes.TextureFormat

	plan    atomic.Pointer[plan]
	version atomic.Uint64
}

// NewExecutor creates an executor with an empty plan. The default compiler
// uses graph.DefaultRegistry and the default merger honors the backend's
// MaxFusedStages.
func NewExecutor(b backend.Backend, pool *resource.Pool, opts ...Option) *Executor {
	caps := b.Capabilities()
	e := &Executor{
		backend: b,
		pool:    pool,
		format:  intermediateFormat(caps),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compiler == nil {
		e.compiler = compile.NewCompiler(graph.DefaultRegistry())
	}
	if e.merger == nil {
		e.merger = compile.NewMerger(compile.WithMaxStages(caps.MaxFusedStages))
	}
	e.plan.Store(newPlan(nil, 0))
	return e
}

// Format returns the intermediate texture format.
func (e *Executor) Format() gputypes.TextureFormat { return e.format }

// Version increments every time the active plan is replaced.
func (e *Executor) Version() uint64 { return e.plan.Load().version }

// Passes returns a copy of the active plan.
func (e *Executor) Passes() []compile.Pass {
	p := e.plan.Load()
	out := make([]compile.Pass, len(p.passes))
	for i, pass := range p.passes {
		out[i] = pass.Clone()
	}
	return out
}

// SetPasses replaces the active plan. With a validator configured the plan
// is only installed when every pass validates.
func (e *Executor) SetPasses(passes []compile.Pass) error {
	p := newPlan(passes, e.version.Add(1))
	if e.validator != nil {
		for i, src := range p.sources {
			if err := e.validator.Validate(src); err != nil {
				return &PassError{Index: i, PassID: p.passes[i].ID, Err: err}
			}
		}
	}
	e.plan.Store(p)
	slogger().Info("render: plan installed", "version", p.version, "passes", len(p.passes))
	return nil
}

// Recompile compiles and merges snap and installs the result. On error the
// active plan is kept.
func (e *Executor) Recompile(snap graph.Snapshot) error {
	passes, err := e.compiler.Compile(snap)
	if err != nil {
		return err
	}
	return e.SetPasses(e.merger.Merge(passes))
}

// Execute runs the active plan to the screen and presents it.
func (e *Executor) Execute(ctx context.Context, fc FrameContext) error {
	if err := e.plan.Load().run(ctx, e.backend, e.pool, e.format, fc, backend.Screen); err != nil {
		return err
	}
	return e.backend.Present(ctx)
}

// ExecuteToTexture runs the active plan, writing the final pass into dst
// instead of the screen. dst must match the viewport.
func (e *Executor) ExecuteToTexture(ctx context.Context, fc FrameContext, dst backend.Handle) error {
	return e.plan.Load().run(ctx, e.backend, e.pool, e.format, fc, dst)
}

// Export runs the active plan into a pooled RGBA8 texture and reads it back
// as tightly packed RGBA8 rows.
func (e *Executor) Export(ctx context.Context, fc FrameContext) (_ []byte, err error) {
	tex, err := e.pool.Acquire(fc.Width, fc.Height, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, fmt.Errorf("render: export: %w", err)
	}
	defer func() {
		err = multierr.Append(err, e.pool.Release(tex))
	}()

	if err := e.ExecuteToTexture(ctx, fc, tex.Handle()); err != nil {
		return nil, err
	}
	pix, err := e.backend.ReadPixels(ctx, tex.Handle())
	if err != nil {
		return nil, fmt.Errorf("render: export: %w", err)
	}
	return pix, nil
}
