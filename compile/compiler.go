// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compile

import (
	"errors"
	"fmt"

	"github.com/gogpu/fxgraph/graph"
	"github.com/gogpu/fxgraph/shader"
)

var (
	// ErrNoOutput means the graph has no usable output node.
	ErrNoOutput = errors.New("compile: no output node")

	// ErrUnconnectedInput means a required input port has no connection.
	ErrUnconnectedInput = errors.New("compile: required input not connected")
)

// passthroughKernel is the stage emitted when a source feeds the output
// directly.
const passthroughKernel = "passthrough"

// Option configures a Compiler.
type Option func(*Compiler)

// WithOutput selects the output node by id. By default the first terminal
// output node in topological order is used.
func WithOutput(id string) Option {
	return func(c *Compiler) { c.output = id }
}

// Compiler turns graph snapshots into render passes.
//
// A Compiler holds no per-graph state and may be shared.
type Compiler struct {
	reg    *graph.Registry
	output string
}

// NewCompiler returns a compiler. reg fills in shaders of nodes that arrive
// without one; it may be nil.
func NewCompiler(reg *graph.Registry, opts ...Option) *Compiler {
	c := &Compiler{reg: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile emits one pass per effect, blend or transform node that feeds the
// output node, in topological order. The last pass writes to Screen.
func (c *Compiler) Compile(snap graph.Snapshot) ([]Pass, error) {
	sorted, err := snap.Sorted()
	if err != nil {
		return nil, err
	}
	out, err := c.findOutput(snap, sorted)
	if err != nil {
		return nil, err
	}

	feeds := snap.Producers(out.ID)
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnconnectedInput, out.ID, graph.PortIn)
	}
	final := feeds[0].From
	live := ancestors(snap, out.ID)

	var passes []Pass
	for _, n := range sorted {
		if !live[n.ID] || n.Type.Structural() {
			continue
		}
		p, err := c.compileNode(snap, n)
		if err != nil {
			return nil, err
		}
		if n.ID == final {
			p.Output = Screen
		}
		passes = append(passes, p)
	}

	if src, ok := snap.Node(final); ok && src.Type == graph.NodeSource {
		passes = append(passes, Pass{
			ID:      out.ID,
			Nodes:   []string{out.ID},
			Program: shader.Single(passthroughKernel, out.ID, shader.Descriptor{Phase: shader.PhaseColor}),
			Inputs:  []string{src.ID},
			Output:  Screen,
		})
	}

	slogger().Debug("compile: graph compiled",
		"graph", snap.ID, "output", out.ID, "nodes", len(snap.Nodes), "passes", len(passes))
	return passes, nil
}

func (c *Compiler) findOutput(snap graph.Snapshot, sorted []graph.Node) (graph.Node, error) {
	if c.output != "" {
		n, ok := snap.Node(c.output)
		if !ok || n.Type != graph.NodeOutput {
			return graph.Node{}, fmt.Errorf("%w: %q is not an output node", ErrNoOutput, c.output)
		}
		return n, nil
	}
	for _, n := range sorted {
		if n.Type != graph.NodeOutput {
			continue
		}
		terminal := true
		for _, e := range snap.Connections {
			if e.From == n.ID {
				terminal = false
				break
			}
		}
		if terminal {
			return n, nil
		}
	}
	return graph.Node{}, ErrNoOutput
}

func (c *Compiler) compileNode(snap graph.Snapshot, n graph.Node) (Pass, error) {
	inputs := make([]string, 0, len(n.Inputs))
	for _, port := range n.Inputs {
		from, ok := producer(snap, n.ID, port.Name)
		if !ok {
			if port.Required {
				return Pass{}, fmt.Errorf("%w: %s.%s", ErrUnconnectedInput, n.ID, port.Name)
			}
			continue
		}
		inputs = append(inputs, resourceID(snap, from))
	}

	desc := n.Shader
	if desc.IsZero() && c.reg != nil {
		if def, ok := c.reg.Lookup(n.Name); ok {
			desc = def.Shader
		}
	}
	return Pass{
		ID:       n.ID,
		Nodes:    []string{n.ID},
		Program:  shader.Single(n.Name, n.ID, desc),
		Inputs:   inputs,
		Output:   TextureID(n.ID),
		Uniforms: n.ParamValues(),
	}, nil
}

// producer returns the node feeding the given input port.
func producer(snap graph.Snapshot, node, port string) (string, bool) {
	for _, e := range snap.Connections {
		if e.To == node && e.ToPort == port {
			return e.From, true
		}
	}
	return "", false
}

// resourceID names what a node produces: source nodes are read by id,
// everything else through its intermediate texture.
func resourceID(snap graph.Snapshot, id string) string {
	if n, ok := snap.Node(id); ok && n.Type == graph.NodeSource {
		return id
	}
	return TextureID(id)
}

// ancestors returns the ids of every node upstream of id.
func ancestors(snap graph.Snapshot, id string) map[string]bool {
	seen := make(map[string]bool)
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range snap.Connections {
			if e.To == cur && !seen[e.From] {
				seen[e.From] = true
				stack = append(stack, e.From)
			}
		}
	}
	return seen
}
