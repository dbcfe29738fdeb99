// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/shader"
)

// Port names shared by the built-in node types.
const (
	PortIn    = "input"
	PortOut   = "output"
	PortBase  = "base"
	PortBlend = "blend"
)

func colorIn() []Port  { return []Port{{Name: PortIn, Type: PortColor, Required: true}} }
func colorOut() []Port { return []Port{{Name: PortOut, Type: PortColor}} }

func f32(name string) []shader.Decl {
	return []shader.Decl{{Name: name, Type: shader.UniformF32}}
}

func number(name string, def, lo, hi float64) Param {
	return Param{Name: name, Type: ParamNumber, Default: def, Min: lo, Max: hi}
}

// effect returns a single-input color effect definition.
func effect(name string, p Param, main string) Def {
	return Def{
		Name:    name,
		Type:    NodeEffect,
		Inputs:  colorIn(),
		Outputs: colorOut(),
		Params:  []Param{p},
		Shader:  shader.Descriptor{Main: main, Phase: shader.PhaseColor, Uniforms: f32(p.Name)},
	}
}

// transform returns a geometric effect definition. Main maps an output
// position to the position sampled from the input.
func transform(name string, params []Param, decls []shader.Decl, main string) Def {
	return Def{
		Name:    name,
		Type:    NodeTransform,
		Inputs:  colorIn(),
		Outputs: colorOut(),
		Params:  params,
		Shader:  shader.Descriptor{Main: main, Phase: shader.PhaseCoord, Uniforms: decls},
	}
}

func blurDef(name string) Def {
	return Def{
		Name:    name,
		Type:    NodeEffect,
		Inputs:  colorIn(),
		Outputs: colorOut(),
		Params:  []Param{number("radius", 4, 0, 64)},
		Shader: shader.Descriptor{
			Functions: blurWGSL,
			// Gaussian variances add, so a fused chain samples once with
			// the combined radius.
			Main:     "acc = acc + {{radius}} * {{radius}};",
			Sample:   "blur_sample(input0, samp, pos, sqrt(acc))",
			Phase:    shader.PhaseSample,
			Uniforms: f32("radius"),
		},
	}
}

func builtins() []Def {
	return []Def{
		{Name: "source", Type: NodeSource, Outputs: colorOut()},
		{Name: "output", Type: NodeOutput, Inputs: colorIn()},
		{
			Name:    "passthrough",
			Type:    NodeEffect,
			Inputs:  colorIn(),
			Outputs: colorOut(),
			Shader:  shader.Descriptor{Phase: shader.PhaseColor},
		},
		effect("brightness", number("amount", 0, -1, 1),
			"color = vec4<f32>(color.rgb + vec3<f32>({{amount}}), color.a);"),
		effect("contrast", number("amount", 1, 0, 4),
			"color = vec4<f32>((color.rgb - vec3<f32>(0.5)) * {{amount}} + vec3<f32>(0.5), color.a);"),
		effect("saturation", number("amount", 1, 0, 4),
			"let lum = dot(color.rgb, vec3<f32>(0.2126, 0.7152, 0.0722));\n"+
				"color = vec4<f32>(mix(vec3<f32>(lum), color.rgb, {{amount}}), color.a);"),
		effect("opacity", number("amount", 1, 0, 1),
			"color = vec4<f32>(color.rgb, color.a * {{amount}});"),
		effect("invert", number("amount", 1, 0, 1),
			"color = vec4<f32>(mix(color.rgb, vec3<f32>(1.0) - color.rgb, {{amount}}), color.a);"),
		blurDef("blur"),
		blurDef("gaussian-blur"),
		transform("scale",
			[]Param{{Name: "factor", Type: ParamVector, Default: []float64{1, 1}, Min: 0.01, Max: 100}},
			[]shader.Decl{{Name: "factor", Type: shader.UniformVec2}},
			"pos = (pos - vec2<f32>(0.5)) / {{factor}} + vec2<f32>(0.5);"),
		transform("rotate",
			[]Param{number("degrees", 0, -360, 360)},
			f32("degrees"),
			"let rad = radians({{degrees}});\n"+
				"let c = cos(rad);\n"+
				"let s = sin(rad);\n"+
				"let dim = vec2<f32>(textureDimensions(input0));\n"+
				"let d = (pos - vec2<f32>(0.5)) * dim;\n"+
				"pos = vec2<f32>(c * d.x + s * d.y, c * d.y - s * d.x) / dim + vec2<f32>(0.5);"),
		transform("translate",
			[]Param{{Name: "offset", Type: ParamVector, Default: []float64{0, 0}, Min: -1, Max: 1}},
			[]shader.Decl{{Name: "offset", Type: shader.UniformVec2}},
			"pos = pos - {{offset}};"),
		transform("flip",
			[]Param{
				{Name: "horizontal", Type: ParamBool, Default: false},
				{Name: "vertical", Type: ParamBool, Default: false},
			},
			[]shader.Decl{{Name: "horizontal", Type: shader.UniformF32}, {Name: "vertical", Type: shader.UniformF32}},
			"pos = mix(pos, vec2<f32>(1.0) - pos, vec2<f32>({{horizontal}}, {{vertical}}));"),
		transform("crop",
			[]Param{{Name: "rect", Type: ParamVector, Default: []float64{0, 0, 1, 1}, Min: 0, Max: 1}},
			[]shader.Decl{{Name: "rect", Type: shader.UniformVec4}},
			"let r = {{rect}};\n"+
				"if (pos.x < r.x || pos.y < r.y || pos.x > r.x + r.z || pos.y > r.y + r.w) {\n"+
				"mask = 0.0;\n"+
				"}"),
		{
			Name: blend.Kernel,
			Type: NodeBlend,
			Inputs: []Port{
				{Name: PortBase, Type: PortColor, Required: true},
				{Name: PortBlend, Type: PortColor, Required: true},
			},
			Outputs: colorOut(),
			Params: []Param{
				number("mode", float64(blend.Normal), 0, float64(len(blend.Modes())-1)),
				number("opacity", 1, 0, 1),
			},
			Shader: blend.Descriptor(),
		},
	}
}

const blurWGSL = `fn blur_sample(tex: texture_2d<f32>, s: sampler, uv: vec2<f32>, radius: f32) -> vec4<f32> {
    if (radius <= 0.0) {
        return textureSampleLevel(tex, s, uv, 0.0);
    }
    let texel = 1.0 / vec2<f32>(textureDimensions(tex));
    let sigma = max(radius / 3.0, 0.5);
    var sum = vec4<f32>(0.0);
    var total = 0.0;
    for (var y = -4; y <= 4; y = y + 1) {
        for (var x = -4; x <= 4; x = x + 1) {
            let offset = vec2<f32>(f32(x), f32(y)) * (radius / 4.0);
            let w = exp(-dot(offset, offset) / (2.0 * sigma * sigma));
            sum = sum + textureSampleLevel(tex, s, uv + offset * texel, 0.0) * w;
            total = total + w;
        }
    }
    return sum / total;
}`
