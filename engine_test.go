// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fxgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/backend/software"
	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/composite"
	"github.com/gogpu/fxgraph/graph"
	"github.com/gogpu/fxgraph/render"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(Config{Backend: software.New(software.WithWorkers(2))})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func solidFrame(w, h int, v byte) backend.Frame {
	return backend.NewSolidFrame(w, h, v, v, v, 255)
}

// compileChain compiles src -> effects -> out with default parameters.
func compileChain(t *testing.T, eng *Engine, effects ...string) []compile.Pass {
	t.Helper()
	passes, err := eng.Compile(chainGraph(t, eng, effects...))
	if err != nil {
		t.Fatal(err)
	}
	return passes
}

func chainGraph(t *testing.T, eng *Engine, effects ...string) graph.Snapshot {
	t.Helper()
	g := eng.NewBuilder("clip")
	if _, err := g.Add("src", "source", nil); err != nil {
		t.Fatal(err)
	}
	prev := "src"
	for _, name := range effects {
		if _, err := g.Add(name, name, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Connect(prev, graph.PortOut, name, graph.PortIn); err != nil {
			t.Fatal(err)
		}
		prev = name
	}
	if _, err := g.Add("out", "output", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Connect(prev, graph.PortOut, "out", graph.PortIn); err != nil {
		t.Fatal(err)
	}
	return g.Snapshot()
}

func TestNewDefaults(t *testing.T) {
	eng, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if eng.Backend() == nil || eng.Pool() == nil {
		t.Fatal("engine missing backend or pool")
	}
	if !backend.IsRegistered(backend.NameSoftware) {
		t.Error("software backend not registered")
	}
	if eng.Registry() == nil || len(eng.Registry().Names()) == 0 {
		t.Error("engine registry has no node types")
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	eng := newTestEngine(t)
	passes := compileChain(t, eng, "invert", "opacity")
	merged := eng.Merge(passes)
	if len(merged) != 1 {
		t.Fatalf("len(Merge()) = %d, want 1", len(merged))
	}

	if err := eng.Execute(context.Background(), merged, grayFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	sw := eng.Backend().(*software.Backend)
	c := sw.ScreenImage().NRGBAAt(2, 2)
	if c.R < 152 || c.R > 154 || c.A != 255 {
		t.Errorf("pixel = %v, want inverted gray", c)
	}
	if s := eng.Pool().Stats(); s.InUse != 0 {
		t.Errorf("InUse = %d after frame, want 0", s.InUse)
	}
}

func TestComposeExecutorOutputs(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	const w, h = 4, 4

	clips := make([]composite.Layer, 0, 2)
	for i, clip := range []struct {
		value   byte
		mode    blend.Mode
		opacity float64
	}{
		{204, blend.Normal, 1},
		{128, blend.Multiply, 0.5},
	} {
		exec := eng.NewExecutor()
		if err := exec.Recompile(chainGraph(t, eng, "passthrough")); err != nil {
			t.Fatal(err)
		}
		tex, err := eng.Pool().Acquire(w, h, gputypes.TextureFormatRGBA8Unorm)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = eng.Pool().Release(tex) }()

		fc := render.FrameContext{Width: w, Height: h, Source: solidFrame(w, h, clip.value)}
		if err := exec.ExecuteToTexture(ctx, fc, tex.Handle()); err != nil {
			t.Fatal(err)
		}
		clips = append(clips, composite.Layer{Source: tex.Handle(), Opacity: clip.opacity, Mode: clip.mode, Z: i})
	}

	out, err := eng.Compose(ctx, clips, composite.Settings{Width: w, Height: h})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = eng.Release(out) }()

	pix, err := eng.Backend().ReadPixels(ctx, out.Handle())
	if err != nil {
		t.Fatal(err)
	}
	// 0.8 * (0.5*0.502 + 0.5*0.8)
	if pix[0] < 132 || pix[0] > 134 || pix[3] != 255 {
		t.Errorf("pixel = %v, want ~133 opaque", pix[:4])
	}
}

type surfaceDevice struct {
	NullDeviceHandle
	format gputypes.TextureFormat
}

func (d surfaceDevice) SurfaceFormat() gputypes.TextureFormat { return d.format }

func TestComposeUsesSurfaceFormat(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceHandle
		want   gputypes.TextureFormat
	}{
		{"no device", nil, gputypes.TextureFormatRGBA8Unorm},
		{"null device", NullDeviceHandle{}, gputypes.TextureFormatRGBA8Unorm},
		{"bgra surface", surfaceDevice{format: gputypes.TextureFormatBGRA8Unorm}, gputypes.TextureFormatBGRA8Unorm},
		{"unusable surface", surfaceDevice{format: gputypes.TextureFormatDepth24PlusStencil8}, gputypes.TextureFormatRGBA8Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := New(Config{Backend: software.New(), Device: tt.device})
			if err != nil {
				t.Fatal(err)
			}
			defer eng.Close()

			tex, err := eng.Compose(context.Background(), nil, composite.Settings{Width: 2, Height: 2})
			if err != nil {
				t.Fatal(err)
			}
			if got := tex.Descriptor().Format; got != tt.want {
				t.Errorf("format = %v, want %v", got, tt.want)
			}
			if err := eng.Release(tex); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestExecuteReportsFailingPass(t *testing.T) {
	eng := newTestEngine(t)
	passes := compileChain(t, eng, "brightness")
	err := eng.Execute(context.Background(), passes, render.FrameContext{Width: 2, Height: 2})
	var pe *render.PassError
	if !errors.As(err, &pe) || pe.PassID != "brightness" {
		t.Fatalf("Execute() error = %v, want PassError for brightness", err)
	}
	if !errors.Is(err, render.ErrMissingSource) {
		t.Errorf("Execute() error = %v, want ErrMissingSource", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	eng, err := New(Config{Backend: software.New()})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if _, err := eng.Pool().Acquire(1, 1, gputypes.TextureFormatRGBA8Unorm); err == nil {
		t.Error("Acquire() after Close succeeded")
	}
}
