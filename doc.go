// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fxgraph is an effects-compositing engine.
//
// Effects are described as a directed acyclic graph of nodes: sources,
// per-pixel effects, blends and an output. The graph is compiled into an
// ordered list of render passes, compatible neighbors are fused into single
// shader invocations, and the result is executed on a backend with pooled
// intermediate textures. Several rendered clips can then be layered with
// blend modes by the compositor.
//
// # Quick Start
//
//	eng, err := fxgraph.New(fxgraph.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	g := eng.NewBuilder("clip")
//	g.Add("src", "source", nil)
//	g.Add("bright", "brightness", map[string]any{"amount": 0.2})
//	g.Add("out", "output", nil)
//	g.Connect("src", graph.PortOut, "bright", graph.PortIn)
//	g.Connect("bright", graph.PortOut, "out", graph.PortIn)
//
//	passes, err := eng.Compile(g.Snapshot())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = eng.Execute(ctx, eng.Merge(passes), render.FrameContext{
//	    Width: 1920, Height: 1080, Source: frame,
//	})
//
// # Architecture
//
// The engine is organized into:
//   - graph: nodes, ports, parameters, the node-type registry and Builder
//   - compile: Compiler and Merger producing [compile.Pass] lists
//   - shader: stage descriptors and WGSL assembly
//   - resource: the texture pool
//   - backend: the backend contract; backend/software is the CPU reference
//   - render: the per-frame executor
//   - composite: multi-layer composition
//
// # Logging
//
// The engine is silent by default. [SetLogger] enables structured logging
// for every sub-package.
package fxgraph
