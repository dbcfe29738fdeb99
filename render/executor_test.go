// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/backend/software"
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/graph"
	"github.com/gogpu/fxgraph/resource"
	"github.com/gogpu/fxgraph/shader"
)

type step struct {
	name   string
	params map[string]any
}

// chain builds src -> steps -> out, naming every node after its type and
// position.
func chain(t *testing.T, steps ...step) graph.Snapshot {
	t.Helper()
	b := graph.NewBuilder("clip", graph.DefaultRegistry())
	prev := "src"
	if _, err := b.Add(prev, "source", nil); err != nil {
		t.Fatal(err)
	}
	for i, s := range steps {
		id := s.name + string(rune('0'+i))
		if _, err := b.Add(id, s.name, s.params); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Connect(prev, graph.PortOut, id, graph.PortIn); err != nil {
			t.Fatal(err)
		}
		prev = id
	}
	if _, err := b.Add("out", "output", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Connect(prev, graph.PortOut, "out", graph.PortIn); err != nil {
		t.Fatal(err)
	}
	return b.Snapshot()
}

func setup(t *testing.T, opts ...Option) (*Executor, *software.Backend, *resource.Pool) {
	t.Helper()
	b := software.New(software.WithWorkers(2))
	pool := resource.NewPool(b, resource.Config{})
	t.Cleanup(func() {
		_ = pool.Close()
		_ = b.Close()
	})
	return NewExecutor(b, pool, opts...), b, pool
}

func gray(w, h int) FrameContext {
	return FrameContext{Width: w, Height: h, Source: backend.NewSolidFrame(w, h, 102, 102, 102, 255)}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func assertDrained(t *testing.T, pool *resource.Pool) {
	t.Helper()
	if s := pool.Stats(); s.InUse != 0 || s.Overflow != 0 {
		t.Errorf("pool still holds textures after frame: %v", s)
	}
}

func TestExecuteBrightnessContrast(t *testing.T) {
	e, b, pool := setup(t)
	snap := chain(t,
		step{"brightness", map[string]any{"amount": 0.2}},
		step{"contrast", map[string]any{"amount": 1.5}},
	)
	if err := e.Recompile(snap); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Passes()); got != 1 {
		t.Fatalf("len(Passes()) = %d, want 1 fused pass", got)
	}

	if err := e.Execute(context.Background(), gray(8, 8)); err != nil {
		t.Fatal(err)
	}
	if b.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", b.Presents())
	}
	img := b.ScreenImage()
	if img == nil {
		t.Fatal("screen not written")
	}
	// (0.4 + 0.2 - 0.5) * 1.5 + 0.5 = 0.65
	c := img.NRGBAAt(3, 3)
	if !near(c.R, 166) || !near(c.G, 166) || !near(c.B, 166) || c.A != 255 {
		t.Errorf("pixel = %v, want ~166 gray", c)
	}
	assertDrained(t, pool)
}

func TestIntermediatesReleasedAfterLastUse(t *testing.T) {
	// One stage per pass keeps every effect in its own pass.
	e, _, pool := setup(t, WithMerger(compile.NewMerger(compile.WithMaxStages(1))))
	snap := chain(t,
		step{"brightness", map[string]any{"amount": 0.1}},
		step{"contrast", nil},
		step{"saturation", nil},
		step{"invert", map[string]any{"amount": 0}},
		step{"opacity", nil},
	)
	if err := e.Recompile(snap); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Passes()); got != 5 {
		t.Fatalf("len(Passes()) = %d, want 5", got)
	}

	for frame := range 3 {
		if err := e.Execute(context.Background(), gray(16, 16)); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		s := pool.Stats()
		// One uploaded source plus two ping-pong intermediates.
		if s.Allocations != 3 {
			t.Errorf("frame %d: Allocations = %d, want 3", frame, s.Allocations)
		}
		if s.Idle != s.Textures {
			t.Errorf("frame %d: Idle = %d, Textures = %d, want equal", frame, s.Idle, s.Textures)
		}
	}
}

func TestFanOutGraph(t *testing.T) {
	e, b, pool := setup(t)
	g := graph.NewBuilder("fan", graph.DefaultRegistry())
	add := func(id, name string, params map[string]any) {
		t.Helper()
		if _, err := g.Add(id, name, params); err != nil {
			t.Fatal(err)
		}
	}
	connect := func(from, to, port string) {
		t.Helper()
		if _, err := g.Connect(from, graph.PortOut, to, port); err != nil {
			t.Fatal(err)
		}
	}
	add("src", "source", nil)
	add("bright", "brightness", map[string]any{"amount": 0.1})
	add("blur", "blur", map[string]any{"radius": 2})
	add("mix", "blend", map[string]any{"mode": 0, "opacity": 0.5})
	add("out", "output", nil)
	connect("src", "bright", graph.PortIn)
	connect("bright", "blur", graph.PortIn)
	connect("bright", "mix", graph.PortBase)
	connect("blur", "mix", graph.PortBlend)
	connect("mix", "out", graph.PortIn)

	if err := e.Recompile(g.Snapshot()); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Passes()); got != 3 {
		t.Fatalf("len(Passes()) = %d, want 3", got)
	}
	if err := e.Execute(context.Background(), gray(8, 8)); err != nil {
		t.Fatal(err)
	}
	// A solid image is unchanged by blur, so both blend inputs are 0.5.
	c := b.ScreenImage().NRGBAAt(4, 4)
	if !near(c.R, 128) || c.A != 255 {
		t.Errorf("pixel = %v, want ~128 gray", c)
	}
	assertDrained(t, pool)
}

func TestExecuteErrors(t *testing.T) {
	snap := chain(t, step{"brightness", nil})

	t.Run("missing source", func(t *testing.T) {
		e, _, pool := setup(t)
		if err := e.Recompile(snap); err != nil {
			t.Fatal(err)
		}
		err := e.Execute(context.Background(), FrameContext{Width: 4, Height: 4})
		var pe *PassError
		if !errors.As(err, &pe) || pe.Index != 0 {
			t.Fatalf("Execute() error = %v, want *PassError at index 0", err)
		}
		if !errors.Is(err, ErrMissingSource) {
			t.Errorf("Execute() error = %v, want ErrMissingSource", err)
		}
		assertDrained(t, pool)
	})

	t.Run("viewport too large", func(t *testing.T) {
		b := software.New(software.WithMaxTextureSize(64))
		pool := resource.NewPool(b, resource.Config{})
		e := NewExecutor(b, pool)
		if err := e.Recompile(snap); err != nil {
			t.Fatal(err)
		}
		err := e.Execute(context.Background(), gray(128, 32))
		if !errors.Is(err, backend.ErrResourceExhausted) {
			t.Errorf("Execute() error = %v, want ErrResourceExhausted", err)
		}
		if s := pool.Stats(); s.Allocations != 0 {
			t.Errorf("Allocations = %d, want 0", s.Allocations)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		e, b, _ := setup(t)
		if err := e.Recompile(snap); err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := e.Execute(ctx, gray(4, 4))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
		if b.ScreenImage() != nil {
			t.Error("screen written by a cancelled frame")
		}
	})

	t.Run("intermediate never produced", func(t *testing.T) {
		e, _, pool := setup(t)
		passes := []compile.Pass{{
			ID:      "bright",
			Nodes:   []string{"bright"},
			Program: shader.Single("brightness", "bright", shader.Descriptor{Phase: shader.PhaseColor}),
			Inputs:  []string{compile.TextureID("ghost")},
			Output:  compile.Screen,
		}}
		if err := e.SetPasses(passes); err != nil {
			t.Fatal(err)
		}
		err := e.Execute(context.Background(), gray(4, 4))
		if !errors.Is(err, ErrUnresolvedInput) {
			t.Errorf("Execute() error = %v, want ErrUnresolvedInput", err)
		}
		assertDrained(t, pool)
	})

	t.Run("empty plan", func(t *testing.T) {
		e, _, _ := setup(t)
		if err := e.Execute(context.Background(), gray(4, 4)); !errors.Is(err, ErrNoPasses) {
			t.Errorf("Execute() error = %v, want ErrNoPasses", err)
		}
	})
}

func TestFailingPassReleasesTextures(t *testing.T) {
	e, b, pool := setup(t)
	color := shader.Descriptor{Phase: shader.PhaseColor}
	passes := []compile.Pass{
		{
			ID: "bright", Nodes: []string{"bright"},
			Program: shader.Single("brightness", "bright", color),
			Inputs:  []string{"src"}, Output: "tex_bright",
		},
		{
			ID: "mystery", Nodes: []string{"mystery"},
			Program: shader.Single("mystery", "mystery", color),
			Inputs:  []string{"tex_bright"}, Output: compile.Screen,
		},
	}
	if err := e.SetPasses(passes); err != nil {
		t.Fatal(err)
	}

	err := e.Execute(context.Background(), gray(4, 4))
	var pe *PassError
	if !errors.As(err, &pe) {
		t.Fatalf("Execute() error = %v, want *PassError", err)
	}
	if pe.Index != 1 || pe.PassID != "mystery" {
		t.Errorf("PassError = {%d %s}, want {1 mystery}", pe.Index, pe.PassID)
	}
	if !errors.Is(err, software.ErrUnsupportedKernel) {
		t.Errorf("Execute() error = %v, want ErrUnsupportedKernel", err)
	}
	if b.Presents() != 0 {
		t.Error("failed frame was presented")
	}
	assertDrained(t, pool)
}

func TestRecompileKeepsPlanOnError(t *testing.T) {
	e, _, _ := setup(t)
	if err := e.Recompile(chain(t, step{"invert", nil})); err != nil {
		t.Fatal(err)
	}
	before, version := e.Passes(), e.Version()

	g := graph.NewBuilder("broken", graph.DefaultRegistry())
	if _, err := g.Add("src", "source", nil); err != nil {
		t.Fatal(err)
	}
	if err := e.Recompile(g.Snapshot()); !errors.Is(err, compile.ErrNoOutput) {
		t.Fatalf("Recompile() error = %v, want ErrNoOutput", err)
	}
	if e.Version() != version {
		t.Errorf("Version() = %d, want %d", e.Version(), version)
	}
	if diff := cmp.Diff(before, e.Passes()); diff != "" {
		t.Errorf("plan changed (-before +after):\n%s", diff)
	}

	if err := e.Recompile(chain(t, step{"opacity", nil})); err != nil {
		t.Fatal(err)
	}
	if e.Version() != version+1 {
		t.Errorf("Version() = %d, want %d", e.Version(), version+1)
	}
}

func TestExportAndCallerTextures(t *testing.T) {
	e, b, pool := setup(t)
	if err := e.Recompile(chain(t, step{"invert", nil})); err != nil {
		t.Fatal(err)
	}

	pix, err := e.Export(context.Background(), gray(4, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(pix) != 4*2*4 {
		t.Fatalf("len(Export()) = %d, want %d", len(pix), 4*2*4)
	}
	if !near(pix[0], 153) || pix[3] != 255 {
		t.Errorf("first pixel = %v, want inverted gray", pix[:4])
	}
	assertDrained(t, pool)

	// A caller-owned source texture is read but not released.
	src, err := b.CreateTexture(4, 2, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.UploadPixels(src, backend.NewSolidFrame(4, 2, 0, 0, 0, 255).Pixels()); err != nil {
		t.Fatal(err)
	}
	fc := FrameContext{Width: 4, Height: 2, Textures: map[string]backend.Handle{"src": src}}
	pix, err = e.Export(context.Background(), fc)
	if err != nil {
		t.Fatal(err)
	}
	if pix[0] != 255 {
		t.Errorf("inverted black = %d, want 255", pix[0])
	}
	if _, err := b.ReadPixels(context.Background(), src); err != nil {
		t.Errorf("caller texture released by frame: %v", err)
	}
}

func TestRun(t *testing.T) {
	b := software.New()
	pool := resource.NewPool(b, resource.Config{})
	passes, err := compile.NewCompiler(graph.DefaultRegistry()).Compile(chain(t, step{"passthrough", nil}))
	if err != nil {
		t.Fatal(err)
	}
	if err := Run(context.Background(), b, pool, passes, gray(2, 2)); err != nil {
		t.Fatal(err)
	}
	if b.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", b.Presents())
	}
	if c := b.ScreenImage().NRGBAAt(0, 0); c.R != 102 {
		t.Errorf("pixel = %v, want 102 gray", c)
	}
}

func TestLastUses(t *testing.T) {
	passes := []compile.Pass{
		{ID: "a", Inputs: []string{"src"}, Output: "tex_a"},
		{ID: "b", Inputs: []string{"tex_a"}, Output: "tex_b"},
		{ID: "c", Inputs: []string{"tex_a", "tex_b"}, Output: compile.Screen},
	}
	want := map[string]int{"src": 0, "tex_a": 2, "tex_b": 2}
	if diff := cmp.Diff(want, LastUses(passes)); diff != "" {
		t.Errorf("LastUses() mismatch (-want +got):\n%s", diff)
	}
}
