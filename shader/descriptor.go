// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import "fmt"

// Phase is the point in the fragment entry point where a stage runs.
type Phase uint8

const (
	// PhaseColor stages transform the sampled color.
	PhaseColor Phase = iota
	// PhaseCoord stages transform the sampling position before sampling.
	PhaseCoord
	// PhaseSample stages replace how the primary input is sampled.
	PhaseSample
)

var phaseNames = [...]string{"color", "coord", "sample"}

// String returns the phase name.
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("shader: invalid phase %d", p)
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("shader: unknown phase %q", text)
}

// UniformType is the WGSL type of a uniform.
type UniformType uint8

const (
	// UniformF32 is a scalar float.
	UniformF32 UniformType = iota
	// UniformVec2 is a vec2<f32>.
	UniformVec2
	// UniformVec3 is a vec3<f32>.
	UniformVec3
	// UniformVec4 is a vec4<f32>.
	UniformVec4
)

var uniformTypeNames = [...]string{"f32", "vec2<f32>", "vec3<f32>", "vec4<f32>"}

// String returns the WGSL spelling of the type.
func (t UniformType) String() string {
	if int(t) < len(uniformTypeNames) {
		return uniformTypeNames[t]
	}
	return fmt.Sprintf("UniformType(%d)", t)
}

// Components returns the number of f32 components.
func (t UniformType) Components() int {
	return int(t) + 1
}

// MarshalText implements encoding.TextMarshaler.
func (t UniformType) MarshalText() ([]byte, error) {
	if int(t) >= len(uniformTypeNames) {
		return nil, fmt.Errorf("shader: invalid uniform type %d", t)
	}
	return []byte(uniformTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *UniformType) UnmarshalText(text []byte) error {
	for i, name := range uniformTypeNames {
		if name == string(text) {
			*t = UniformType(i)
			return nil
		}
	}
	return fmt.Errorf("shader: unknown uniform type %q", text)
}

// Decl declares a uniform referenced by a main body template.
type Decl struct {
	Name string      `json:"name"`
	Type UniformType `json:"type"`
}

// Descriptor is the shader fragment a node contributes.
type Descriptor struct {
	// Functions is auxiliary WGSL placed at module scope. Identical blocks
	// from several stages are emitted once.
	Functions string `json:"functions,omitempty"`

	// Main is the body template. It reads and writes color (PhaseColor),
	// pos (PhaseCoord) or acc (PhaseSample) and references uniforms as {{name}}.
	Main string `json:"main"`

	// Sample replaces the primary textureSample for PhaseSample stages.
	// It may reference acc, pos, samp and input0.
	Sample string `json:"sample,omitempty"`

	Phase    Phase  `json:"phase"`
	Uniforms []Decl `json:"uniforms,omitempty"`
}

// IsZero reports whether the descriptor carries no code.
func (d Descriptor) IsZero() bool {
	return d.Functions == "" && d.Main == "" && d.Sample == ""
}

// Clone returns a deep copy.
func (d Descriptor) Clone() Descriptor {
	d.Uniforms = append([]Decl(nil), d.Uniforms...)
	return d
}
