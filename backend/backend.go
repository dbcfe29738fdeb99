// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"context"
	"errors"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/fxgraph/shader"
)

// Common backend errors.
var (
	// ErrBackendUnavailable is returned when no usable backend exists or a
	// backend lost its device.
	ErrBackendUnavailable = errors.New("backend: not available")

	// ErrResourceExhausted is returned when a texture cannot be created.
	ErrResourceExhausted = errors.New("backend: resource exhausted")

	// ErrUnknownTexture is returned for handles the backend does not own.
	ErrUnknownTexture = errors.New("backend: unknown texture")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("backend: closed")
)

// Handle identifies a backend texture.
type Handle uint64

const (
	// InvalidHandle is the zero handle. Backends never return it.
	InvalidHandle Handle = 0

	// Screen is the visible canvas. It is valid as a pass output and for
	// ReadPixels, never for DestroyTexture.
	Screen Handle = math.MaxUint64
)

// Capabilities are static properties of a backend.
type Capabilities struct {
	// MaxTextureSize is the largest supported width or height.
	MaxTextureSize int

	// Float16 reports support for RGBA16Float render targets.
	Float16 bool

	// Compute reports compute-shader support.
	Compute bool

	// ExternalImport reports zero-copy ImportFrame support.
	ExternalImport bool

	// MaxFusedStages limits stages per shader invocation; 0 means no limit.
	MaxFusedStages int
}

// Frame is a decoded source image. Pixels are tightly packed RGBA8 rows with
// straight alpha.
type Frame interface {
	Width() int
	Height() int
	Pixels() []byte
}

// Invocation is one pass as handed to a backend.
type Invocation struct {
	// Label names the pass for diagnostics.
	Label string

	// Program is the fused stage list. CPU backends dispatch on its stage
	// kernels; GPU backends compile Source.
	Program shader.Program

	// Source is the WGSL of Program.
	Source string

	// Inputs are bound in order as input0, input1 and so on.
	Inputs []Handle

	// Output is a texture handle or Screen.
	Output Handle

	Uniforms shader.Uniforms

	// Width and Height are the viewport.
	Width, Height int
}

// Backend executes render passes.
//
// Calls are issued in program order from one goroutine at a time.
type Backend interface {
	// Name returns the backend identifier, e.g. "software".
	Name() string

	Capabilities() Capabilities

	// CreateTexture allocates a texture. Failure to allocate returns an
	// error wrapping ErrResourceExhausted.
	CreateTexture(width, height int, format gputypes.TextureFormat) (Handle, error)

	DestroyTexture(h Handle) error

	// UploadPixels replaces a texture's contents with RGBA8 straight-alpha
	// pixels.
	UploadPixels(h Handle, pixels []byte) error

	// ImportFrame makes a frame available as a texture. The caller destroys
	// the handle when done.
	ImportFrame(f Frame) (Handle, error)

	// ExecutePass runs one shader invocation.
	ExecutePass(ctx context.Context, inv *Invocation) error

	// Present shows the screen target.
	Present(ctx context.Context) error

	// ReadPixels copies a texture (or Screen) back to memory. 8-bit
	// formats yield RGBA8 rows; float formats yield little-endian float32.
	ReadPixels(ctx context.Context, h Handle) ([]byte, error)

	// Close releases every texture.
	Close() error
}
