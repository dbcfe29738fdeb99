// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"fmt"
	"strings"
)

// Uniform is one named uniform value.
// Values are float64, bool or []float64.
type Uniform struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Uniforms is an ordered uniform list. Order is part of a pass's identity,
// which keeps compilation output byte-for-byte reproducible.
type Uniforms []Uniform

// Namespace returns the fused-pass uniform name for a stage.
func Namespace(stage int, name string) string {
	return fmt.Sprintf("pass%d_%s", stage, name)
}

// Get returns the value stored under name.
func (u Uniforms) Get(name string) (any, bool) {
	for _, e := range u {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Float returns the named value as a float64, or def if missing or not
// numeric. Bools map to 0 and 1; vectors yield their first component.
func (u Uniforms) Float(name string, def float64) float64 {
	v, ok := u.Get(name)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case []float64:
		if len(x) > 0 {
			return x[0]
		}
	}
	return def
}

// Vector returns the named value as a vector of n components, padding with
// def. Scalars are broadcast.
func (u Uniforms) Vector(name string, n int, def float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = def
	}
	v, ok := u.Get(name)
	if !ok {
		return out
	}
	switch x := v.(type) {
	case float64:
		for i := range out {
			out[i] = x
		}
	case []float64:
		copy(out, x)
	}
	return out
}

// Map returns the uniforms as a map. The map loses ordering and is meant for
// lookups and diagnostics.
func (u Uniforms) Map() map[string]any {
	m := make(map[string]any, len(u))
	for _, e := range u {
		m[e.Name] = e.Value
	}
	return m
}

// Namespaced returns a copy with every name prefixed for the given stage.
func (u Uniforms) Namespaced(stage int) Uniforms {
	out := make(Uniforms, len(u))
	for i, e := range u {
		out[i] = Uniform{Name: Namespace(stage, e.Name), Value: e.Value}
	}
	return out
}

// ForStage extracts the uniforms of one stage of a program with the given
// stage count, stripping the namespace prefix of fused programs.
func (u Uniforms) ForStage(stage, stages int) Uniforms {
	if stages <= 1 {
		return u.Clone()
	}
	prefix := Namespace(stage, "")
	var out Uniforms
	for _, e := range u {
		if name, ok := strings.CutPrefix(e.Name, prefix); ok {
			out = append(out, Uniform{Name: name, Value: e.Value})
		}
	}
	return out
}

// Clone returns a deep copy; vector values are copied too.
func (u Uniforms) Clone() Uniforms {
	if u == nil {
		return nil
	}
	out := make(Uniforms, len(u))
	for i, e := range u {
		out[i] = Uniform{Name: e.Name, Value: CloneValue(e.Value)}
	}
	return out
}

// CloneValue copies vector values; scalars are returned as is.
func CloneValue(v any) any {
	if vec, ok := v.([]float64); ok {
		return append([]float64(nil), vec...)
	}
	return v
}
