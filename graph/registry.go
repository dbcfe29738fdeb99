// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"slices"
	"sync"

	"github.com/gogpu/fxgraph/shader"
)

// Def describes a node type: its port shape, default parameters and shader.
type Def struct {
	Name    string
	Type    NodeType
	Inputs  []Port
	Outputs []Port
	Params  []Param
	Shader  shader.Descriptor
}

// Registry maps effect names to node definitions.
//
// A Registry is safe for concurrent use. Builders and compilers take one
// explicitly; there is no package-level registry.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Def
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Def)}
}

// DefaultRegistry returns a new registry holding the built-in node types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range builtins() {
		r.Register(d)
	}
	return r
}

// Register adds a definition, replacing any previous one with the same name.
func (r *Registry) Register(d Def) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.Name] = cloneDef(d)
}

// Unregister removes a definition. It is a no-op for unknown names.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.defs, name)
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return Def{}, false
	}
	return cloneDef(d), true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewNode instantiates the named definition with the given id. Overrides set
// initial parameter values; unknown keys and ill-typed values are ignored.
func (r *Registry) NewNode(id, name string, overrides map[string]any) (Node, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return Node{}, nodeError(ErrUnknownNodeType, name)
	}
	n := Node{
		ID:      id,
		Type:    d.Type,
		Name:    d.Name,
		Inputs:  d.Inputs,
		Outputs: d.Outputs,
		Params:  d.Params,
		Shader:  d.Shader,
	}
	applyParams(n.Params, overrides)
	return n, nil
}

func cloneDef(d Def) Def {
	n := Node{Inputs: d.Inputs, Outputs: d.Outputs, Params: d.Params, Shader: d.Shader}.Clone()
	d.Inputs, d.Outputs, d.Params, d.Shader = n.Inputs, n.Outputs, n.Params, n.Shader
	return d
}

// applyParams sets declared parameters from values, coercing and clamping.
func applyParams(params []Param, values map[string]any) {
	for i := range params {
		v, ok := values[params[i].Name]
		if !ok {
			continue
		}
		if cv, ok := params[i].Coerce(v); ok {
			params[i].Value = cv
		}
	}
}
