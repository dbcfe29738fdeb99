// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Test with errors.Is.
var (
	ErrDuplicateNodeID        = errors.New("duplicate node id")
	ErrUnknownNode            = errors.New("unknown node")
	ErrUnknownPort            = errors.New("unknown port")
	ErrCycleDetected          = errors.New("cycle detected")
	ErrInvalidSerializedGraph = errors.New("invalid serialized graph")
	ErrUnknownNodeType        = errors.New("unknown node type")
	ErrInvalidNode            = errors.New("invalid node")
)

// Error describes a rejected graph operation.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Node and Port name the offending element, when known.
	Node string
	Port string
	// Path lists node ids along a detected cycle.
	Path []string
	// Err is the underlying cause (for ErrInvalidSerializedGraph).
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("graph: ")
	b.WriteString(e.Kind.Error())
	switch {
	case e.Node != "" && e.Port != "":
		fmt.Fprintf(&b, " %s.%s", e.Node, e.Port)
	case e.Node != "":
		fmt.Fprintf(&b, " %q", e.Node)
	}
	if len(e.Path) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Path, " -> "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func nodeError(kind error, node string) error {
	return &Error{Kind: kind, Node: node}
}

func portError(node, port string) error {
	return &Error{Kind: ErrUnknownPort, Node: node, Port: port}
}

func cycleError(path []string) error {
	return &Error{Kind: ErrCycleDetected, Path: path}
}

func invalidf(cause error, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	return &Error{Kind: ErrInvalidSerializedGraph, Err: err}
}
