// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compile turns effect graphs into ordered render passes and fuses
// adjacent compatible passes.
//
// # Compiling
//
// A [Compiler] walks a topologically sorted [graph.Snapshot] and emits one
// [Pass] per non-structural node that feeds the designated output node.
// The pass attached to the output writes to [Screen]; every other pass
// writes an intermediate texture named after its node. Compilation is pure:
// the same graph always yields identical passes and no GPU state is touched.
//
// # Merging
//
// A [Merger] fuses runs of passes where each consumes exactly the previous
// pass's output and both share a category ([Category]). Fused passes
// concatenate their shader stages and namespace uniforms per stage as
// pass0_name, pass1_name and so on. Merging never reorders passes.
//
//	passes, err := compile.NewCompiler(reg).Compile(b.Snapshot())
//	if err != nil {
//		return err
//	}
//	passes = compile.NewMerger().Merge(passes)
package compile
