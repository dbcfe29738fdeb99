// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stackfile loads effect stacks written in HCL.
//
// A stack file declares clips. Each clip is a linear chain of effects applied
// to one source and the blend settings used when clips are layered:
//
//	clip "title" {
//	  mode    = "screen"
//	  opacity = 0.8
//	  z       = 1
//
//	  effect "brightness" {
//	    amount = strength * 0.5
//	  }
//	  effect "scale" {
//	    factor = [1.5, 1.5]
//	  }
//	}
//
// Effect labels name node types; attributes set node parameters. An effect
// may set id to choose its node id. Expressions may reference variables
// supplied by the caller.
package stackfile
