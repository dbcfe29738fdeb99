// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fxgraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"go.uber.org/multierr"

	"github.com/gogpu/fxgraph/backend"
	_ "github.com/gogpu/fxgraph/backend/software" // registers the CPU fallback
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/composite"
	"github.com/gogpu/fxgraph/graph"
	"github.com/gogpu/fxgraph/render"
	"github.com/gogpu/fxgraph/resource"
	"github.com/gogpu/fxgraph/shader"
)

// Config configures an Engine. The zero value selects the best registered
// backend, a pool with the default budget and the built-in node types.
type Config struct {
	// Backend executes passes. Nil selects backend.Default().
	Backend backend.Backend

	// Pool configures the intermediate texture pool.
	Pool resource.Config

	// Registry resolves node types. Nil selects graph.DefaultRegistry().
	Registry *graph.Registry

	// Device is the host GPU device, if any. Its surface format becomes the
	// default composite format.
	Device DeviceHandle

	// Logger, if set, is installed with SetLogger.
	Logger *slog.Logger

	// ValidateShaders makes executors reject plans whose WGSL does not
	// compile.
	ValidateShaders bool
}

// Engine ties the pipeline together: it owns a backend, a texture pool, a
// merger sized to the backend and a compositor.
//
// Engine methods may be called from multiple goroutines, but frames
// (Execute, Compose and executor runs) must not overlap.
type Engine struct {
	backend    backend.Backend
	pool       *resource.Pool
	registry   *graph.Registry
	merger     *compile.Merger
	compositor *composite.Compositor
	validator  *shader.Validator
	format     gputypes.TextureFormat

	closeOnce sync.Once
	closeErr  error
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
	}
	b := cfg.Backend
	if b == nil {
		b = backend.Default()
		if b == nil {
			return nil, fmt.Errorf("fxgraph: %w: none registered", backend.ErrBackendUnavailable)
		}
	}
	reg := cfg.Registry
	if reg == nil {
		reg = graph.DefaultRegistry()
	}

	caps := b.Capabilities()
	pool := resource.NewPool(b, cfg.Pool)
	e := &Engine{
		backend:    b,
		pool:       pool,
		registry:   reg,
		merger:     compile.NewMerger(compile.WithMaxStages(caps.MaxFusedStages)),
		compositor: composite.New(b, pool),
		format:     surfaceFormat(cfg.Device),
	}
	if cfg.ValidateShaders {
		e.validator = shader.NewValidator(0)
	}
	Logger().Info("fxgraph: engine ready",
		"backend", b.Name(), "max_texture_size", caps.MaxTextureSize,
		"float16", caps.Float16, "max_fused_stages", caps.MaxFusedStages)
	return e, nil
}

// Backend returns the engine's backend.
func (e *Engine) Backend() backend.Backend { return e.backend }

// Pool returns the engine's texture pool.
func (e *Engine) Pool() *resource.Pool { return e.pool }

// Registry returns the node-type registry.
func (e *Engine) Registry() *graph.Registry { return e.registry }

// NewBuilder starts an empty graph resolved against the engine's registry.
func (e *Engine) NewBuilder(id string) *graph.Builder {
	return graph.NewBuilder(id, e.registry)
}

// Compile turns a graph snapshot into passes.
func (e *Engine) Compile(snap graph.Snapshot, opts ...compile.Option) ([]compile.Pass, error) {
	return compile.NewCompiler(e.registry, opts...).Compile(snap)
}

// Merge fuses compatible passes within the backend's stage limit.
func (e *Engine) Merge(passes []compile.Pass) []compile.Pass {
	return e.merger.Merge(passes)
}

// NewExecutor creates an executor sharing the engine's backend, pool and
// registry.
func (e *Engine) NewExecutor(opts ...render.Option) *render.Executor {
	base := []render.Option{
		render.WithCompiler(compile.NewCompiler(e.registry)),
		render.WithMerger(e.merger),
	}
	if e.validator != nil {
		base = append(base, render.WithValidator(e.validator))
	}
	return render.NewExecutor(e.backend, e.pool, append(base, opts...)...)
}

// Execute runs passes for one frame and presents the screen.
func (e *Engine) Execute(ctx context.Context, passes []compile.Pass, fc render.FrameContext) error {
	if e.validator != nil {
		for i, p := range passes {
			if err := e.validator.ValidateProgram(p.Program, len(p.Inputs)); err != nil {
				return &render.PassError{Index: i, PassID: p.ID, Err: err}
			}
		}
	}
	return render.Run(ctx, e.backend, e.pool, passes, fc)
}

// Compose layers rendered textures. An undefined settings format selects
// the device surface format. Hand the result back with Release.
func (e *Engine) Compose(ctx context.Context, layers []composite.Layer, s composite.Settings) (*resource.Texture, error) {
	return e.compositor.Compose(ctx, layers, e.settings(s))
}

// ComposeToScreen layers rendered textures onto the screen and presents it.
func (e *Engine) ComposeToScreen(ctx context.Context, layers []composite.Layer, s composite.Settings) error {
	return e.compositor.ComposeToScreen(ctx, layers, e.settings(s))
}

// Release returns a texture obtained from Compose.
func (e *Engine) Release(tex *resource.Texture) error {
	return e.compositor.Release(tex)
}

func (e *Engine) settings(s composite.Settings) composite.Settings {
	if s.Format == gputypes.TextureFormatUndefined {
		s.Format = e.format
	}
	return s
}

// Close releases the pool and the backend. It is safe to call more than
// once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = multierr.Combine(e.pool.Close(), e.backend.Close())
		Logger().Info("fxgraph: engine closed", "backend", e.backend.Name())
	})
	return e.closeErr
}
