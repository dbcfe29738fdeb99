// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/gogpu/fxgraph/shader"
)

// ParamType is the value type of a node parameter.
type ParamType uint8

const (
	// ParamNumber values are float64.
	ParamNumber ParamType = iota
	// ParamBool values are bool.
	ParamBool
	// ParamVector values are []float64.
	ParamVector
	// ParamColor values are []float64 RGBA with components in [0, 1].
	ParamColor
)

var paramTypeNames = [...]string{"number", "bool", "vector", "color"}

func (t ParamType) String() string {
	if int(t) < len(paramTypeNames) {
		return paramTypeNames[t]
	}
	return fmt.Sprintf("ParamType(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t ParamType) MarshalText() ([]byte, error) {
	if int(t) >= len(paramTypeNames) {
		return nil, fmt.Errorf("graph: invalid param type %d", t)
	}
	return []byte(paramTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ParamType) UnmarshalText(text []byte) error {
	for i, name := range paramTypeNames {
		if name == string(text) {
			*t = ParamType(i)
			return nil
		}
	}
	return fmt.Errorf("graph: unknown param type %q", text)
}

// Param is a user-adjustable node parameter.
//
// Min and Max bound numeric values (each vector component) when Max > Min.
type Param struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Default any       `json:"default"`
	Value   any       `json:"value,omitempty"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
}

// Current returns the value, or the default when unset.
func (p Param) Current() any {
	if p.Value != nil {
		return p.Value
	}
	return p.Default
}

// Coerce converts v to the parameter's value type and clamps it to the
// parameter range. It reports false when v cannot represent this type.
func (p Param) Coerce(v any) (any, bool) {
	switch p.Type {
	case ParamNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return p.clamp(f), true
	case ParamBool:
		switch x := v.(type) {
		case bool:
			return x, true
		default:
			if f, ok := toFloat(v); ok {
				return f != 0, true
			}
		}
		return nil, false
	case ParamVector, ParamColor:
		vec, ok := toVector(v)
		if !ok {
			return nil, false
		}
		for i := range vec {
			vec[i] = p.clamp(vec[i])
			if p.Type == ParamColor && !(p.Max > p.Min) {
				vec[i] = math.Max(0, math.Min(1, vec[i]))
			}
		}
		return vec, true
	}
	return nil, false
}

func (p Param) clamp(f float64) float64 {
	if p.Max > p.Min {
		return math.Max(p.Min, math.Min(p.Max, f))
	}
	return f
}

func (p Param) clone() Param {
	p.Default = shader.CloneValue(p.Default)
	p.Value = shader.CloneValue(p.Value)
	return p
}

// UnmarshalJSON decodes a parameter and normalizes its default and value to
// the declared type.
func (p *Param) UnmarshalJSON(data []byte) error {
	type rawParam Param
	var raw rawParam
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Param(raw)
	if p.Default != nil {
		v, ok := p.Coerce(p.Default)
		if !ok {
			return fmt.Errorf("graph: param %q: default %v is not a %s", p.Name, p.Default, p.Type)
		}
		p.Default = v
	}
	if p.Value != nil {
		v, ok := p.Coerce(p.Value)
		if !ok {
			return fmt.Errorf("graph: param %q: value %v is not a %s", p.Name, p.Value, p.Type)
		}
		p.Value = v
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func toVector(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return append([]float64(nil), x...), true
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	if f, ok := toFloat(v); ok {
		return []float64{f}, true
	}
	return nil, false
}
