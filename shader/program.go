// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"fmt"
	"slices"
	"strings"
)

// Stage is one node's fragment placed inside a program.
type Stage struct {
	// Kernel is the effect name of the contributing node ("brightness").
	// CPU backends dispatch on it.
	Kernel string `json:"kernel"`

	// NodeID identifies the contributing graph node.
	NodeID string `json:"nodeId"`

	Descriptor
}

// Program is an ordered list of stages executed as one shader invocation.
type Program struct {
	Stages []Stage `json:"stages"`
}

// Single returns a one-stage program.
func Single(kernel, nodeID string, d Descriptor) Program {
	return Program{Stages: []Stage{{Kernel: kernel, NodeID: nodeID, Descriptor: d.Clone()}}}
}

// Concat returns a program running a's stages followed by b's.
func Concat(a, b Program) Program {
	stages := make([]Stage, 0, len(a.Stages)+len(b.Stages))
	for _, s := range a.Stages {
		s.Descriptor = s.Descriptor.Clone()
		stages = append(stages, s)
	}
	for _, s := range b.Stages {
		s.Descriptor = s.Descriptor.Clone()
		stages = append(stages, s)
	}
	return Program{Stages: stages}
}

// Len returns the number of stages.
func (p Program) Len() int { return len(p.Stages) }

// Kernels returns the kernel names in stage order.
func (p Program) Kernels() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Kernel
	}
	return names
}

// UniformName resolves a uniform of stage i to its name in the assembled
// program.
func (p Program) UniformName(stage int, name string) string {
	if len(p.Stages) <= 1 {
		return name
	}
	return Namespace(stage, name)
}

// Source assembles the program into a WGSL module with a full-screen vertex
// entry point (vs_main) and a fragment entry point (fs_main) reading the
// given number of input textures.
func (p Program) Source(inputs int) string {
	var b strings.Builder

	b.WriteString("struct Uniforms {\n")
	fields := 0
	for i, s := range p.Stages {
		for _, d := range s.Uniforms {
			fmt.Fprintf(&b, "    %s: %s,\n", p.UniformName(i, d.Name), d.Type)
			fields++
		}
	}
	if fields == 0 {
		b.WriteString("    _pad: f32,\n")
	}
	b.WriteString("};\n\n")

	b.WriteString("@group(0) @binding(0) var<uniform> u: Uniforms;\n")
	b.WriteString("@group(0) @binding(1) var samp: sampler;\n")
	for i := 0; i < inputs; i++ {
		fmt.Fprintf(&b, "@group(0) @binding(%d) var input%d: texture_2d<f32>;\n", i+2, i)
	}
	b.WriteString(vertexSource)

	var seen []string
	for _, s := range p.Stages {
		fn := strings.TrimSpace(s.Functions)
		if fn == "" || slices.Contains(seen, fn) {
			continue
		}
		seen = append(seen, fn)
		b.WriteString(fn)
		b.WriteString("\n\n")
	}

	b.WriteString("@fragment\nfn fs_main(frag: VertexOutput) -> @location(0) vec4<f32> {\n")
	b.WriteString("    var pos = frag.uv;\n")
	b.WriteString("    var mask = 1.0;\n")

	for i := len(p.Stages) - 1; i >= 0; i-- {
		if p.Stages[i].Phase == PhaseCoord {
			p.writeMain(&b, i)
		}
	}

	sample := "vec4<f32>(0.0)"
	if inputs > 0 {
		sample = "textureSample(input0, samp, pos)"
	}
	if p.hasPhase(PhaseSample) {
		b.WriteString("    var acc = 0.0;\n")
		for i, s := range p.Stages {
			if s.Phase != PhaseSample {
				continue
			}
			p.writeMain(&b, i)
			if s.Sample != "" {
				sample = p.resolve(i, s.Sample)
			}
		}
	}
	fmt.Fprintf(&b, "    var color = %s;\n", sample)

	for i, s := range p.Stages {
		if s.Phase == PhaseColor {
			p.writeMain(&b, i)
		}
	}
	b.WriteString("    return color * mask;\n}\n")
	return b.String()
}

func (p Program) hasPhase(phase Phase) bool {
	for _, s := range p.Stages {
		if s.Phase == phase {
			return true
		}
	}
	return false
}

func (p Program) writeMain(b *strings.Builder, stage int) {
	body := strings.TrimSpace(p.resolve(stage, p.Stages[stage].Main))
	if body == "" {
		return
	}
	// Each stage gets its own block so fused stages may reuse local names.
	fmt.Fprintf(b, "    // %s\n    {\n", p.Stages[stage].Kernel)
	for _, line := range strings.Split(body, "\n") {
		b.WriteString("        ")
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("\n")
	}
	b.WriteString("    }\n")
}

// resolve replaces {{name}} placeholders of stage i with uniform accesses.
func (p Program) resolve(stage int, tmpl string) string {
	decls := p.Stages[stage].Uniforms
	if len(decls) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(decls)*2)
	for _, d := range decls {
		pairs = append(pairs, "{{"+d.Name+"}}", "u."+p.UniformName(stage, d.Name))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

const vertexSource = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32((idx << 1u) & 2u);
    let y = f32(idx & 2u);
    out.position = vec4<f32>(x * 2.0 - 1.0, 1.0 - y * 2.0, 0.0, 1.0);
    out.uv = vec2<f32>(x, y);
    return out;
}

`
