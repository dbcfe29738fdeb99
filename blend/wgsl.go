// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package blend

import (
	"fmt"
	"strings"

	"github.com/gogpu/fxgraph/shader"
)

// wgslBodies holds the vec3 expression of each mode in terms of b (base)
// and s (blend).
var wgslBodies = [modeCount]string{
	Normal:     "s",
	Multiply:   "b * s",
	Screen:     "b + s - b * s",
	Overlay:    "select(1.0 - 2.0 * (1.0 - b) * (1.0 - s), 2.0 * b * s, b <= vec3<f32>(0.5))",
	Add:        "min(b + s, vec3<f32>(1.0))",
	Subtract:   "max(b - s, vec3<f32>(0.0))",
	Difference: "abs(b - s)",
	Darken:     "min(b, s)",
	Lighten:    "max(b, s)",
	ColorDodge: "select(select(min(vec3<f32>(1.0), b / max(vec3<f32>(1e-6), 1.0 - s)), vec3<f32>(1.0), s >= vec3<f32>(1.0)), vec3<f32>(0.0), b <= vec3<f32>(0.0))",
	ColorBurn:  "select(select(1.0 - min(vec3<f32>(1.0), (1.0 - b) / max(s, vec3<f32>(1e-6))), vec3<f32>(0.0), s <= vec3<f32>(0.0)), vec3<f32>(1.0), b >= vec3<f32>(1.0))",
	HardLight:  "select(1.0 - 2.0 * (1.0 - b) * (1.0 - s), 2.0 * b * s, s <= vec3<f32>(0.5))",
	SoftLight:  "select(b + (2.0 * s - 1.0) * (select(sqrt(b), ((16.0 * b - 12.0) * b + 4.0) * b, b <= vec3<f32>(0.25)) - b), b - (1.0 - 2.0 * s) * b * (1.0 - b), s <= vec3<f32>(0.5))",
	Exclusion:  "b + s - 2.0 * b * s",
}

// WGSL returns the expression computing the mode for vec3<f32> values named
// b and s.
func (m Mode) WGSL() string {
	if !m.Valid() {
		return wgslBodies[Normal]
	}
	return wgslBodies[m]
}

// WGSLFunctions returns module-scope WGSL defining
//
//	blend_channel(mode: i32, b: vec3<f32>, s: vec3<f32>) -> vec3<f32>
//	composite(base: vec4<f32>, top: vec4<f32>, mode: i32, opacity: f32) -> vec4<f32>
//
// mirroring Func and Composite.
func WGSLFunctions() string {
	var sb strings.Builder
	sb.WriteString("fn blend_channel(mode: i32, b: vec3<f32>, s: vec3<f32>) -> vec3<f32> {\n")
	sb.WriteString("    switch mode {\n")
	for _, m := range Modes()[1:] {
		fmt.Fprintf(&sb, "        case %d: { return %s; }\n", int(m), m.WGSL())
	}
	fmt.Fprintf(&sb, "        default: { return %s; }\n", Normal.WGSL())
	sb.WriteString("    }\n}\n\n")
	sb.WriteString(compositeWGSL)
	return sb.String()
}

// Kernel is the stage kernel name of a blend composite.
const Kernel = "blend"

// Descriptor returns the color stage that composites input1 over the
// current color with uniforms mode (a Mode index) and opacity.
func Descriptor() shader.Descriptor {
	return shader.Descriptor{
		Functions: WGSLFunctions(),
		Main:      "color = composite(color, textureSample(input1, samp, pos), i32({{mode}}), {{opacity}});",
		Phase:     shader.PhaseColor,
		Uniforms: []shader.Decl{
			{Name: "mode", Type: shader.UniformF32},
			{Name: "opacity", Type: shader.UniformF32},
		},
	}
}

// FillKernel is the stage kernel name of a solid color fill.
const FillKernel = "fill"

// FillDescriptor returns the color stage that replaces the color with the
// vec4 uniform color. It reads no input.
func FillDescriptor() shader.Descriptor {
	return shader.Descriptor{
		Main:     "color = {{color}};",
		Phase:    shader.PhaseColor,
		Uniforms: []shader.Decl{{Name: "color", Type: shader.UniformVec4}},
	}
}

const compositeWGSL = `fn composite(base: vec4<f32>, top: vec4<f32>, mode: i32, opacity: f32) -> vec4<f32> {
    let o = clamp(opacity, 0.0, 1.0);
    if (o <= 0.0) {
        return base;
    }
    let ab = clamp(base.a, 0.0, 1.0);
    let tinted = mix(base.rgb, top.rgb, vec3<f32>(o));
    let mixed = (1.0 - ab) * top.rgb + ab * blend_channel(mode, base.rgb, tinted);
    let a = clamp(top.a, 0.0, 1.0) * (o + (1.0 - o) * ab);
    let out_a = a + ab * (1.0 - a);
    if (out_a <= 0.0) {
        return vec4<f32>(0.0);
    }
    let rgb = (mixed * a + base.rgb * ab * (1.0 - a)) / out_a;
    return vec4<f32>(rgb, out_a);
}`
