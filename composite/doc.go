// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package composite layers rendered clips into one image.
//
// Layers are drawn back to front in ascending Z order over a solid
// background. Each layer costs one backend pass that applies its blend mode
// and then composites with the premultiplied "over" operator at the layer's
// opacity; see package blend for the color math.
//
// The accumulator ping-pongs between two pooled textures, so composing any
// number of layers holds at most two textures besides the layer sources.
package composite
