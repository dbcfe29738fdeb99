// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graph models a clip's effect stack as a directed acyclic graph of
// typed processing nodes.
//
// Nodes self-describe their ports, parameters and shader fragment. The
// [Builder] owns node and connection lifetime: nodes live in an
// insertion-ordered arena keyed by id, connections in a flat edge list, so a
// graph never holds pointer cycles and its [Snapshot] is the serialized form.
//
// Node types come from an explicit [Registry] value. [DefaultRegistry]
// returns a fresh registry holding the built-in node types; nothing in this
// package keeps global registration state.
//
// A Builder is not safe for concurrent writers. Callers serialize graph edits,
// typically from one authoring goroutine.
package graph
