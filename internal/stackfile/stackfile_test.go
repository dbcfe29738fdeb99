// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stackfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/compile"
	"github.com/gogpu/fxgraph/graph"
)

const sample = `
clip "background" {
  effect "blur" {
    radius = 6
  }
}

clip "title" {
  mode    = "screen"
  opacity = 1.5
  z       = 2

  effect "brightness" {
    amount = strength * 0.5
  }
  effect "brightness" {}
  effect "flip" {
    id         = "mirror"
    horizontal = true
  }
  effect "scale" {
    factor = [1.5, 2]
  }
}
`

func TestParse(t *testing.T) {
	stack, err := Parse([]byte(sample), "sample.hcl", map[string]float64{"strength": 0.4})
	if err != nil {
		t.Fatal(err)
	}
	want := &Stack{Clips: []Clip{
		{
			Name: "background", Mode: blend.Normal, Opacity: 1,
			Effects: []Effect{{ID: "blur", Type: "blur", Params: map[string]any{"radius": 6.0}}},
		},
		{
			Name: "title", Mode: blend.Screen, Opacity: 1, Z: 2,
			Effects: []Effect{
				{ID: "brightness", Type: "brightness", Params: map[string]any{"amount": 0.2}},
				{ID: "brightness-2", Type: "brightness", Params: map[string]any{}},
				{ID: "mirror", Type: "flip", Params: map[string]any{"horizontal": true}},
				{ID: "scale", Type: "scale", Params: map[string]any{"factor": []any{1.5, 2.0}}},
			},
		},
	}}
	if diff := cmp.Diff(want, stack); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `clip "a" {`, "failed to parse"},
		{"unknown attribute", `clip "a" { speed = 2 }`, "failed to decode"},
		{"unknown mode", `clip "a" { mode = "glow" }`, "unknown mode"},
		{"duplicate clip", `
clip "a" {}
clip "a" {}`, "duplicate clip"},
		{"duplicate effect id", `
clip "a" {
  effect "blur" { id = "x" }
  effect "invert" { id = "x" }
}`, "duplicate id"},
		{"reserved effect id", `
clip "a" {
  effect "blur" { id = "source" }
}`, "duplicate id"},
		{"undefined variable", `
clip "a" {
  effect "blur" { radius = missing }
}`, "missing"},
		{"string parameter", `
clip "a" {
  effect "blur" { radius = "wide" }
}`, "unsupported value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl", nil)
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestClipGraph(t *testing.T) {
	stack, err := Parse([]byte(sample), "sample.hcl", map[string]float64{"strength": 0.4})
	if err != nil {
		t.Fatal(err)
	}
	b, err := stack.Clips[1].Graph(graph.DefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}

	order, err := b.TopologicallySorted()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, n := range order {
		ids = append(ids, n.ID)
	}
	wantIDs := []string{SourceID, "brightness", "brightness-2", "mirror", "scale", OutputID}
	if diff := cmp.Diff(wantIDs, ids); diff != "" {
		t.Errorf("node order mismatch (-want +got):\n%s", diff)
	}

	n, _ := b.Node("scale")
	if p, _ := n.Param("factor"); !cmp.Equal(p.Current(), []float64{1.5, 2}) {
		t.Errorf("scale factor = %v, want [1.5 2]", p.Current())
	}

	passes, err := compile.NewCompiler(b.Registry()).Compile(b.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	// Two color passes and two transform passes fuse pairwise.
	if got := len(compile.NewMerger().Merge(passes)); got != 2 {
		t.Errorf("merged pass count = %d, want 2", got)
	}
}

func TestClipGraphErrors(t *testing.T) {
	reg := graph.DefaultRegistry()
	tests := []struct {
		name   string
		effect Effect
		want   string
	}{
		{"unknown type", Effect{ID: "x", Type: "sparkle"}, "unknown node type"},
		{"structural type", Effect{ID: "x", Type: "output"}, "not an effect"},
		{"blend type", Effect{ID: "x", Type: blend.Kernel}, "not an effect"},
		{"unknown parameter", Effect{ID: "x", Type: "blur", Params: map[string]any{"sigma": 1.0}}, "unknown parameter"},
		{"wrong kind", Effect{ID: "x", Type: "scale", Params: map[string]any{"factor": true}}, "not a valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := Clip{Name: "c", Effects: []Effect{tt.effect}}
			_, err := clip.Graph(reg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Graph() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	// With several bad parameters the report is stable.
	bad := Effect{ID: "x", Type: "blur", Params: map[string]any{"sigma": 1.0, "amount": true, "zeta": 2.0}}
	for range 20 {
		_, err := Clip{Name: "c", Effects: []Effect{bad}}.Graph(reg)
		if err == nil || !strings.Contains(err.Error(), `unknown parameter "amount"`) {
			t.Fatalf("Graph() error = %v, want the first undeclared name in order", err)
		}
	}

	clip := Clip{Name: "c", Effects: []Effect{{ID: "x", Type: "sparkle"}}}
	if _, err := clip.Graph(reg); !errors.Is(err, graph.ErrUnknownNodeType) {
		t.Errorf("Graph() error = %v, want ErrUnknownNodeType", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.hcl")
	if err := os.WriteFile(path, []byte(`clip "solo" { effect "invert" {} }`), 0o600); err != nil {
		t.Fatal(err)
	}
	stack, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(stack.Clips) != 1 || stack.Clips[0].Effects[0].ID != "invert" {
		t.Errorf("Load() = %+v", stack)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.hcl"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}
