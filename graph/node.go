// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"fmt"

	"github.com/gogpu/fxgraph/shader"
)

// NodeType is the structural category of a node.
type NodeType uint8

const (
	// NodeSource reads an external frame. It has no inputs.
	NodeSource NodeType = iota
	// NodeEffect is a single-input color or filter effect.
	NodeEffect
	// NodeBlend combines two or more inputs.
	NodeBlend
	// NodeTransform is a geometric effect.
	NodeTransform
	// NodeOutput marks where the rendered result is presented.
	NodeOutput
)

var nodeTypeNames = [...]string{"source", "effect", "blend", "transform", "output"}

// String returns the node type tag.
func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", t)
}

// Structural reports whether nodes of this type emit no render pass.
func (t NodeType) Structural() bool {
	return t == NodeSource || t == NodeOutput
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	if int(t) >= len(nodeTypeNames) {
		return nil, fmt.Errorf("graph: invalid node type %d", t)
	}
	return []byte(nodeTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(text []byte) error {
	for i, name := range nodeTypeNames {
		if name == string(text) {
			*t = NodeType(i)
			return nil
		}
	}
	return fmt.Errorf("graph: unknown node type %q", text)
}

// PortType is the kind of data flowing through a port.
type PortType uint8

const (
	PortColor PortType = iota
	PortAlpha
	PortVector
	PortNumber
	PortTexture
)

var portTypeNames = [...]string{"color", "alpha", "vector", "number", "texture"}

func (t PortType) String() string {
	if int(t) < len(portTypeNames) {
		return portTypeNames[t]
	}
	return fmt.Sprintf("PortType(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t PortType) MarshalText() ([]byte, error) {
	if int(t) >= len(portTypeNames) {
		return nil, fmt.Errorf("graph: invalid port type %d", t)
	}
	return []byte(portTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PortType) UnmarshalText(text []byte) error {
	for i, name := range portTypeNames {
		if name == string(text) {
			*t = PortType(i)
			return nil
		}
	}
	return fmt.Errorf("graph: unknown port type %q", text)
}

// Port is a named, typed node input or output.
type Port struct {
	Name     string   `json:"name"`
	Type     PortType `json:"type"`
	Required bool     `json:"required,omitempty"`
}

// Node is a typed unit of GPU processing.
//
// Nodes are value records: the Builder stores its own copy and only
// parameter values change after insertion.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	// Name is the effect identity ("brightness", "blur"). Pass categories
	// and CPU kernels are derived from it.
	Name    string            `json:"name"`
	Inputs  []Port            `json:"inputs,omitempty"`
	Outputs []Port            `json:"outputs,omitempty"`
	Params  []Param           `json:"params,omitempty"`
	Shader  shader.Descriptor `json:"shader"`
}

// Input returns the named input port.
func (n Node) Input(name string) (Port, bool) {
	return findPort(n.Inputs, name)
}

// Output returns the named output port.
func (n Node) Output(name string) (Port, bool) {
	return findPort(n.Outputs, name)
}

func findPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Param returns the named parameter.
func (n Node) Param(name string) (Param, bool) {
	for _, p := range n.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ParamValues returns the current parameter values as uniforms, in
// declaration order.
func (n Node) ParamValues() shader.Uniforms {
	out := make(shader.Uniforms, 0, len(n.Params))
	for _, p := range n.Params {
		out = append(out, shader.Uniform{Name: p.Name, Value: shader.CloneValue(p.Current())})
	}
	return out
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Inputs = append([]Port(nil), n.Inputs...)
	n.Outputs = append([]Port(nil), n.Outputs...)
	params := make([]Param, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.clone()
	}
	if n.Params == nil {
		params = nil
	}
	n.Params = params
	n.Shader = n.Shader.Clone()
	return n
}

// validate checks structural sanity of a node before insertion.
func (n Node) validate() error {
	if n.ID == "" {
		return &Error{Kind: ErrInvalidNode, Err: fmt.Errorf("empty node id")}
	}
	if int(n.Type) >= len(nodeTypeNames) {
		return &Error{Kind: ErrInvalidNode, Node: n.ID, Err: fmt.Errorf("invalid node type %d", n.Type)}
	}
	seen := make(map[string]bool, len(n.Inputs))
	for _, p := range n.Inputs {
		if seen[p.Name] {
			return &Error{Kind: ErrInvalidNode, Node: n.ID, Err: fmt.Errorf("duplicate input port %q", p.Name)}
		}
		seen[p.Name] = true
	}
	return nil
}

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	FromPort string `json:"fromPort"`
	To       string `json:"to"`
	ToPort   string `json:"toPort"`
}

// String renders the edge as from.port -> to.port.
func (c Connection) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", c.From, c.FromPort, c.To, c.ToPort)
}

// involves reports whether the connection touches the node.
func (c Connection) involves(id string) bool {
	return c.From == id || c.To == id
}
