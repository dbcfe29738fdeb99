// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compile

import (
	"slices"
	"strings"

	"github.com/gogpu/fxgraph/shader"
)

// Screen is the output identifier of the pass presented to the canvas.
const Screen = "screen"

// texturePrefix names intermediate outputs: tex_<node id>.
const texturePrefix = "tex_"

// Pass is one shader invocation reading zero or more named resources and
// writing one.
//
// Passes are values: the merger builds new passes instead of mutating.
type Pass struct {
	// ID is the node id, or merged-{A}-{B} for fused passes.
	ID string `json:"id"`

	// Nodes lists contributing node ids in stage order.
	Nodes []string `json:"nodes"`

	Program shader.Program `json:"program"`

	// Inputs are resource ids in input-port order: a source node id or an
	// earlier pass's Output.
	Inputs []string `json:"inputs"`

	// Output is Screen or an intermediate texture id.
	Output string `json:"output"`

	// Uniforms are the parameter values, namespaced per stage when the
	// program has more than one stage.
	Uniforms shader.Uniforms `json:"uniforms"`
}

// ToScreen reports whether the pass writes to the screen sentinel.
func (p Pass) ToScreen() bool { return p.Output == Screen }

// Source returns the WGSL of the pass's fused program.
func (p Pass) Source() string { return p.Program.Source(len(p.Inputs)) }

// Clone returns a deep copy.
func (p Pass) Clone() Pass {
	p.Nodes = slices.Clone(p.Nodes)
	p.Inputs = slices.Clone(p.Inputs)
	p.Uniforms = p.Uniforms.Clone()
	p.Program = shader.Concat(p.Program, shader.Program{})
	return p
}

// TextureID returns the intermediate output id of a node.
func TextureID(nodeID string) string { return texturePrefix + nodeID }

// IsTextureID reports whether id names an intermediate output rather than
// a source.
func IsTextureID(id string) bool { return strings.HasPrefix(id, texturePrefix) }

// NodeCount returns the number of node ids across passes.
func NodeCount(passes []Pass) int {
	n := 0
	for _, p := range passes {
		n += len(p.Nodes)
	}
	return n
}
