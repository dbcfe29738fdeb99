// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"encoding/json"
	"errors"
)

// Snapshot is an immutable, serializable copy of a graph. Its JSON form is
// {"id", "nodes", "connections"}.
type Snapshot struct {
	ID          string       `json:"id"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Sorted returns the snapshot's nodes in topological order. The edge list
// of a deserialized snapshot is untrusted: connections to missing nodes or
// ports fail with ErrInvalidSerializedGraph, and cycles are reported too.
func (s Snapshot) Sorted() ([]Node, error) {
	nodes := make(map[string]Node, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes[n.ID] = n
	}
	lookup := func(id string) (Node, bool) {
		n, ok := nodes[id]
		return n, ok
	}
	for _, c := range s.Connections {
		if err := checkEndpoints(c, lookup); err != nil {
			return nil, invalidf(err, "connection %s", c)
		}
	}
	return topoSort(s.Nodes, s.Connections)
}

// checkEndpoints reports a connection whose nodes or ports do not exist.
func checkEndpoints(c Connection, lookup func(string) (Node, bool)) error {
	src, ok := lookup(c.From)
	if !ok {
		return nodeError(ErrUnknownNode, c.From)
	}
	dst, ok := lookup(c.To)
	if !ok {
		return nodeError(ErrUnknownNode, c.To)
	}
	if _, ok := src.Output(c.FromPort); !ok {
		return portError(c.From, c.FromPort)
	}
	if _, ok := dst.Input(c.ToPort); !ok {
		return portError(c.To, c.ToPort)
	}
	return nil
}

// Producers returns the connections feeding a node, in input-port order.
func (s Snapshot) Producers(id string) []Connection {
	n, ok := s.Node(id)
	if !ok {
		return nil
	}
	var out []Connection
	for _, p := range n.Inputs {
		for _, c := range s.Connections {
			if c.To == id && c.ToPort == p.Name {
				out = append(out, c)
			}
		}
	}
	return out
}

// Marshal encodes the snapshot as JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes a JSON snapshot. Parameter values are
// normalized to their declared types. The result is not validated; pass it
// to FromSnapshot for that.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, invalidf(err, "decode snapshot")
	}
	return s, nil
}

// FromSnapshot rebuilds a Builder from a snapshot. Nodes are replayed
// through AddNode and connections restored directly. Duplicate or dangling
// references and cycles fail with ErrInvalidSerializedGraph.
func FromSnapshot(s Snapshot, reg *Registry) (*Builder, error) {
	b := NewBuilder(s.ID, reg)
	for _, n := range s.Nodes {
		if err := b.AddNode(n); err != nil {
			return nil, invalidf(err, "node %q", n.ID)
		}
	}

	ids := make(map[string]bool, len(s.Connections))
	targets := make(map[[2]string]string, len(s.Connections))
	for _, c := range s.Connections {
		if c.ID == "" || ids[c.ID] {
			return nil, invalidf(nil, "duplicate or empty connection id %q", c.ID)
		}
		ids[c.ID] = true

		if err := checkEndpoints(c, b.lookup); err != nil {
			return nil, invalidf(err, "connection %s", c)
		}
		key := [2]string{c.To, c.ToPort}
		if prev, ok := targets[key]; ok {
			return nil, invalidf(nil, "input %s.%s targeted by %q and %q", c.To, c.ToPort, prev, c.ID)
		}
		targets[key] = c.ID
		b.conns = append(b.conns, c)
	}

	if _, err := b.TopologicallySorted(); err != nil {
		return nil, invalidf(err, "graph %q", s.ID)
	}
	return b, nil
}

// IsInvalid reports whether err rejects a serialized graph.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidSerializedGraph)
}
