// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render executes compiled pass lists on a backend.
//
// An Executor owns the active plan, a list of [compile.Pass] values, and runs
// it once per frame. Intermediate textures come from a [resource.Pool] and
// are returned as soon as their last consumer has executed, so a linear
// chain of any length holds at most two intermediates at a time.
//
// # Frames
//
// Each frame is described by a [FrameContext]: the viewport and the decoded
// source images keyed by source node id. Sources are imported when the
// backend supports zero-copy import and uploaded into pooled textures
// otherwise.
//
// # Plans
//
// Recompile compiles and merges a graph snapshot and swaps the active plan
// atomically. Frames already running keep the plan they started with.
//
// # Errors
//
// A failing pass stops the frame. The error is a [*PassError] carrying the
// pass index and id; the backend error is available through errors.Is and
// errors.As. Every texture the frame held is returned to the pool before
// the error is reported.
package render
