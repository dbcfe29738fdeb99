// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"slices"

	"github.com/google/uuid"

	"github.com/gogpu/fxgraph/shader"
)

// Builder owns a mutable node graph.
//
// Nodes live in an insertion-ordered arena indexed by id; connections are a
// flat edge list. A Builder is not safe for concurrent writers; callers must
// serialize edits.
type Builder struct {
	id    string
	reg   *Registry
	nodes []Node
	index map[string]int
	conns []Connection
}

// NewBuilder returns an empty graph. reg resolves node types for Add; it may
// be nil when only AddNode is used.
func NewBuilder(id string, reg *Registry) *Builder {
	return &Builder{id: id, reg: reg, index: make(map[string]int)}
}

// ID returns the graph id.
func (b *Builder) ID() string { return b.id }

// Registry returns the registry the builder was created with.
func (b *Builder) Registry() *Registry { return b.reg }

// AddNode inserts a copy of n. Parameters without a value start at their
// default.
func (b *Builder) AddNode(n Node) error {
	if err := n.validate(); err != nil {
		return err
	}
	if _, ok := b.index[n.ID]; ok {
		return nodeError(ErrDuplicateNodeID, n.ID)
	}
	n = n.Clone()
	for i := range n.Params {
		if n.Params[i].Value == nil {
			n.Params[i].Value = shader.CloneValue(n.Params[i].Default)
		}
	}
	b.index[n.ID] = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return nil
}

// Add instantiates a registered node type and inserts it.
func (b *Builder) Add(id, name string, params map[string]any) (Node, error) {
	if b.reg == nil {
		return Node{}, nodeError(ErrUnknownNodeType, name)
	}
	n, err := b.reg.NewNode(id, name, params)
	if err != nil {
		return Node{}, err
	}
	if err := b.AddNode(n); err != nil {
		return Node{}, err
	}
	return b.nodes[b.index[id]].Clone(), nil
}

// RemoveNode deletes a node and every connection touching it. It reports
// false, and changes nothing, when the node does not exist.
func (b *Builder) RemoveNode(id string) bool {
	i, ok := b.index[id]
	if !ok {
		return false
	}
	b.nodes = slices.Delete(b.nodes, i, i+1)
	delete(b.index, id)
	for j := i; j < len(b.nodes); j++ {
		b.index[b.nodes[j].ID] = j
	}
	b.conns = slices.DeleteFunc(b.conns, func(c Connection) bool { return c.involves(id) })
	return true
}

// Connect adds an edge from an output port to an input port. An existing
// edge into the same input is replaced. Edges that would close a cycle are
// rejected and leave the graph unchanged.
func (b *Builder) Connect(from, fromPort, to, toPort string) (Connection, error) {
	src, ok := b.lookup(from)
	if !ok {
		return Connection{}, nodeError(ErrUnknownNode, from)
	}
	dst, ok := b.lookup(to)
	if !ok {
		return Connection{}, nodeError(ErrUnknownNode, to)
	}
	if _, ok := src.Output(fromPort); !ok {
		return Connection{}, portError(from, fromPort)
	}
	if _, ok := dst.Input(toPort); !ok {
		return Connection{}, portError(to, toPort)
	}
	if from == to {
		return Connection{}, cycleError([]string{from, to})
	}
	if path := b.pathBetween(to, from); path != nil {
		return Connection{}, cycleError(append(path, to))
	}

	c := Connection{ID: uuid.NewString(), From: from, FromPort: fromPort, To: to, ToPort: toPort}
	b.conns = slices.DeleteFunc(b.conns, func(e Connection) bool {
		return e.To == to && e.ToPort == toPort
	})
	b.conns = append(b.conns, c)
	return c, nil
}

// Disconnect removes the connection with the given id and reports whether
// it existed.
func (b *Builder) Disconnect(id string) bool {
	n := len(b.conns)
	b.conns = slices.DeleteFunc(b.conns, func(c Connection) bool { return c.ID == id })
	return len(b.conns) != n
}

// UpdateNodeParams sets parameter values by name. Keys the node does not
// declare and values of the wrong type are ignored; numbers are clamped to
// the parameter range.
func (b *Builder) UpdateNodeParams(id string, values map[string]any) error {
	i, ok := b.index[id]
	if !ok {
		return nodeError(ErrUnknownNode, id)
	}
	applyParams(b.nodes[i].Params, values)
	return nil
}

// Node returns a copy of the node with the given id.
func (b *Builder) Node(id string) (Node, bool) {
	n, ok := b.lookup(id)
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

func (b *Builder) lookup(id string) (Node, bool) {
	i, ok := b.index[id]
	if !ok {
		return Node{}, false
	}
	return b.nodes[i], true
}

// Nodes returns copies of all nodes in insertion order.
func (b *Builder) Nodes() []Node {
	out := make([]Node, len(b.nodes))
	for i, n := range b.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Connections returns a copy of the edge list.
func (b *Builder) Connections() []Connection {
	return slices.Clone(b.conns)
}

// Sources returns the nodes with no required input connected.
func (b *Builder) Sources() []Node {
	var out []Node
	for _, n := range b.nodes {
		connected := false
		for _, p := range n.Inputs {
			if p.Required && b.feeds(n.ID, p.Name) {
				connected = true
				break
			}
		}
		if !connected {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Outputs returns the output nodes that have no outgoing connections.
func (b *Builder) Outputs() []Node {
	var out []Node
	for _, n := range b.nodes {
		if n.Type != NodeOutput {
			continue
		}
		if !slices.ContainsFunc(b.conns, func(c Connection) bool { return c.From == n.ID }) {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (b *Builder) feeds(node, port string) bool {
	return slices.ContainsFunc(b.conns, func(c Connection) bool { return c.To == node && c.ToPort == port })
}

// TopologicallySorted returns every node after all nodes feeding it.
func (b *Builder) TopologicallySorted() ([]Node, error) {
	return topoSort(b.nodes, b.conns)
}

// Snapshot returns an immutable copy of the graph.
func (b *Builder) Snapshot() Snapshot {
	return Snapshot{ID: b.id, Nodes: b.Nodes(), Connections: b.Connections()}
}

// pathBetween returns the node ids on a downstream path from one node to
// another, or nil when to is unreachable.
func (b *Builder) pathBetween(from, to string) []string {
	seen := make(map[string]bool)
	var walk func(id string) []string
	walk = func(id string) []string {
		if id == to {
			return []string{id}
		}
		if seen[id] {
			return nil
		}
		seen[id] = true
		for _, c := range b.conns {
			if c.From != id {
				continue
			}
			if rest := walk(c.To); rest != nil {
				return append([]string{id}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

// topoSort orders nodes depth-first, visiting each node's producers in
// input-port order before the node itself. Revisiting a node that is still
// in progress reports ErrCycleDetected.
func topoSort(nodes []Node, conns []Connection) ([]Node, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	state := make([]int, len(nodes))
	out := make([]Node, 0, len(nodes))
	var stack []string

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			start := slices.Index(stack, nodes[i].ID)
			return cycleError(append(slices.Clone(stack[start:]), nodes[i].ID))
		}
		state[i] = visiting
		stack = append(stack, nodes[i].ID)
		for _, producer := range producers(nodes[i], conns) {
			j, ok := index[producer]
			if !ok {
				continue
			}
			if err := visit(j); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		out = append(out, nodes[i].Clone())
		return nil
	}

	for i := range nodes {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// producers returns the ids feeding n, in input-port order. Edges into
// undeclared ports follow in edge order.
func producers(n Node, conns []Connection) []string {
	var ids []string
	used := make([]bool, len(conns))
	for _, p := range n.Inputs {
		for k, c := range conns {
			if !used[k] && c.To == n.ID && c.ToPort == p.Name {
				ids = append(ids, c.From)
				used[k] = true
			}
		}
	}
	for k, c := range conns {
		if !used[k] && c.To == n.ID {
			ids = append(ids, c.From)
		}
	}
	return ids
}
