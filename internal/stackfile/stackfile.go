// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stackfile

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/graph"
)

// Node ids of the structural nodes every clip graph contains.
const (
	SourceID = "source"
	OutputID = "output"
)

// Stack is a decoded stack file.
type Stack struct {
	Clips []Clip
}

// Clip is one source with its effect chain and layering settings.
type Clip struct {
	Name    string
	Mode    blend.Mode
	Opacity float64
	Z       int
	Effects []Effect
}

// Effect is one node of a clip chain.
type Effect struct {
	ID     string
	Type   string
	Params map[string]any
}

type hclStack struct {
	Clips []*hclClip `hcl:"clip,block"`
}

type hclClip struct {
	Name    string       `hcl:"name,label"`
	Mode    *string      `hcl:"mode,optional"`
	Opacity *float64     `hcl:"opacity,optional"`
	Z       *int         `hcl:"z,optional"`
	Effects []*hclEffect `hcl:"effect,block"`
}

type hclEffect struct {
	Type   string   `hcl:"type,label"`
	ID     *string  `hcl:"id,optional"`
	Remain hcl.Body `hcl:",remain"`
}

// Load reads and parses the stack file at path.
func Load(path string, vars map[string]float64) (*Stack, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stackfile: %w", err)
	}
	return Parse(src, path, vars)
}

// Parse decodes a stack file. vars are visible to attribute expressions;
// filename is used in diagnostics.
func Parse(src []byte, filename string, vars map[string]float64) (*Stack, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("stackfile: failed to parse %s: %w", filename, diags)
	}

	ctx := evalContext(vars)
	var raw hclStack
	if diags := gohcl.DecodeBody(file.Body, ctx, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("stackfile: failed to decode %s: %w", filename, diags)
	}

	stack := &Stack{Clips: make([]Clip, 0, len(raw.Clips))}
	seen := make(map[string]bool, len(raw.Clips))
	for _, rc := range raw.Clips {
		if seen[rc.Name] {
			return nil, fmt.Errorf("stackfile: %s: duplicate clip %q", filename, rc.Name)
		}
		seen[rc.Name] = true

		clip, err := decodeClip(rc, ctx)
		if err != nil {
			return nil, fmt.Errorf("stackfile: %s: clip %q: %w", filename, rc.Name, err)
		}
		stack.Clips = append(stack.Clips, clip)
	}
	return stack, nil
}

func evalContext(vars map[string]float64) *hcl.EvalContext {
	values := make(map[string]cty.Value, len(vars))
	for name, v := range vars {
		values[name] = cty.NumberFloatVal(v)
	}
	return &hcl.EvalContext{Variables: values}
}

func decodeClip(rc *hclClip, ctx *hcl.EvalContext) (Clip, error) {
	clip := Clip{Name: rc.Name, Mode: blend.Normal, Opacity: 1}
	if rc.Mode != nil {
		m, err := blend.ParseMode(*rc.Mode)
		if err != nil {
			return Clip{}, err
		}
		clip.Mode = m
	}
	if rc.Opacity != nil {
		clip.Opacity = min(max(*rc.Opacity, 0), 1)
	}
	if rc.Z != nil {
		clip.Z = *rc.Z
	}

	ids := map[string]bool{SourceID: true, OutputID: true}
	for i, re := range rc.Effects {
		e := Effect{Type: re.Type, Params: make(map[string]any)}
		if re.ID != nil {
			e.ID = *re.ID
			if ids[e.ID] {
				return Clip{}, fmt.Errorf("effect %d: duplicate id %q", i, e.ID)
			}
		} else {
			e.ID = uniqueID(ids, re.Type)
		}
		ids[e.ID] = true

		attrs, diags := re.Remain.JustAttributes()
		if diags.HasErrors() {
			return Clip{}, fmt.Errorf("effect %q: %w", e.ID, diags)
		}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(ctx)
			if diags.HasErrors() {
				return Clip{}, fmt.Errorf("effect %q: %w", e.ID, diags)
			}
			v, err := ctyToNative(val)
			if err != nil {
				return Clip{}, fmt.Errorf("effect %q: parameter %q: %w", e.ID, name, err)
			}
			e.Params[name] = v
		}
		clip.Effects = append(clip.Effects, e)
	}
	return clip, nil
}

// uniqueID returns base, or base followed by the first free numeric suffix.
func uniqueID(taken map[string]bool, base string) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if !taken[id] {
			return id
		}
	}
}

// ctyToNative converts a parameter value to the Go form graph parameters
// accept: float64, bool or []any of those.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("value must be known and not null")
	}
	ty := v.Type()
	switch {
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			n, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}

// Graph builds source -> effects -> output for the clip. Every effect must
// be a single-input node type in reg, and every parameter must be declared
// by it with a value of the right kind.
func (c Clip) Graph(reg *graph.Registry) (*graph.Builder, error) {
	b := graph.NewBuilder(c.Name, reg)
	if _, err := b.Add(SourceID, "source", nil); err != nil {
		return nil, err
	}
	prev := SourceID
	for _, e := range c.Effects {
		def, ok := reg.Lookup(e.Type)
		if !ok {
			return nil, fmt.Errorf("stackfile: clip %q: %w: %q", c.Name, graph.ErrUnknownNodeType, e.Type)
		}
		if def.Type != graph.NodeEffect && def.Type != graph.NodeTransform {
			return nil, fmt.Errorf("stackfile: clip %q: %q is a %v node, not an effect", c.Name, e.Type, def.Type)
		}
		if err := checkParams(def, e.Params); err != nil {
			return nil, fmt.Errorf("stackfile: clip %q: effect %q: %w", c.Name, e.ID, err)
		}
		if _, err := b.Add(e.ID, e.Type, e.Params); err != nil {
			return nil, err
		}
		if _, err := b.Connect(prev, graph.PortOut, e.ID, graph.PortIn); err != nil {
			return nil, err
		}
		prev = e.ID
	}
	if _, err := b.Add(OutputID, "output", nil); err != nil {
		return nil, err
	}
	if _, err := b.Connect(prev, graph.PortOut, OutputID, graph.PortIn); err != nil {
		return nil, err
	}
	return b, nil
}

// checkParams reports the first bad parameter in declaration order, then
// the first undeclared name in sorted order.
func checkParams(def graph.Def, params map[string]any) error {
	for _, p := range def.Params {
		v, ok := params[p.Name]
		if !ok {
			continue
		}
		if _, ok := p.Coerce(v); !ok {
			return fmt.Errorf("parameter %q: %v is not a valid %v", p.Name, v, p.Type)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if !slices.ContainsFunc(def.Params, func(p graph.Param) bool { return p.Name == name }) {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	return nil
}
