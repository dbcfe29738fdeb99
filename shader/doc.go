// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader describes the per-node shader fragments of an effect graph
// and assembles them into complete WGSL fragment programs.
//
// Every node supplies one [Descriptor]: auxiliary function code, a main body
// template, a [Phase] and the uniforms the template references through
// {{name}} placeholders. The compiler turns each node into a one-stage
// [Program]; the pass merger concatenates stages of fused passes. Uniform
// placeholders resolve to plain names for single-stage programs and to
// pass<i>_<name> for fused programs, so stages never collide.
//
// Assembly order inside the fragment entry point:
//
//  1. coord stages, in reverse order (each rewrites pos and may clear mask)
//  2. sample stages, in order (each accumulates into acc)
//  3. the input sample (textureSample, or the last sample stage's Sample expression)
//  4. color stages, in order (each rewrites color)
//  5. the result, multiplied by mask
package shader
