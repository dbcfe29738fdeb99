// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend defines the contract between the effects engine and a GPU
// (or CPU) rendering implementation.
//
// The engine never talks to a graphics API directly. It creates textures,
// uploads or imports source frames, runs one shader invocation per pass and
// reads pixels back through the [Backend] interface. Textures are opaque
// [Handle] values; [Screen] names the visible canvas.
//
// # Backend Registration
//
// Implementations register a factory from an init function and are selected
// by name or by priority:
//
//	import _ "github.com/gogpu/fxgraph/backend/software"
//
//	b := backend.Default()
//	if b == nil {
//		log.Fatal(backend.ErrBackendUnavailable)
//	}
//	defer b.Close()
//
// # Capabilities
//
// [Capabilities] are static per backend. The executor picks its
// intermediate texture format from Float16, refuses viewports above
// MaxTextureSize, and imports frames without copying when ExternalImport is
// set. The merger caps fused stage counts with MaxFusedStages.
package backend
