// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software provides a CPU implementation of backend.Backend.
//
// Textures are float32 RGBA with straight alpha. A pass evaluates its fused
// program the way the generated fragment shader does: coordinate stages map
// each output position in reverse order, blur stages combine into one
// Gaussian of the summed variance, and color stages run in order. Each
// stage is dispatched on its kernel name; unknown kernels fail the pass
// with ErrUnsupportedKernel.
//
// Rows are rendered in bands on multiple goroutines.
//
// The backend registers itself as "software" on import:
//
//	import _ "github.com/gogpu/fxgraph/backend/software"
package software
