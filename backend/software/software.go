// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/fxgraph/backend"
)

// ErrUnsupportedKernel is returned for stages without a CPU kernel.
var ErrUnsupportedKernel = errors.New("software: unsupported kernel")

// DefaultMaxTextureSize matches the common GPU limit.
const DefaultMaxTextureSize = 8192

func init() {
	backend.Register(backend.NameSoftware, func() backend.Backend { return New() })
}

// Option configures a Backend.
type Option func(*Backend)

// WithMaxTextureSize sets the reported and enforced texture size limit.
func WithMaxTextureSize(n int) Option {
	return func(b *Backend) { b.caps.MaxTextureSize = n }
}

// WithWorkers sets the number of goroutines rendering row bands.
func WithWorkers(n int) Option {
	return func(b *Backend) { b.workers = max(n, 1) }
}

// WithMaxFusedStages sets the reported fused-stage limit.
func WithMaxFusedStages(n int) Option {
	return func(b *Backend) { b.caps.MaxFusedStages = n }
}

// Backend renders passes on the CPU.
//
// Backend is safe for concurrent use; passes are serialized.
type Backend struct {
	mu       sync.Mutex
	caps     backend.Capabilities
	workers  int
	next     backend.Handle
	textures map[backend.Handle]*texture
	screen   *texture
	presents int
	closed   bool
}

// New returns a software backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		caps: backend.Capabilities{
			MaxTextureSize: DefaultMaxTextureSize,
			Float16:        true,
		},
		workers:  runtime.GOMAXPROCS(0),
		textures: make(map[backend.Handle]*texture),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return backend.NameSoftware }

// Capabilities implements backend.Backend.
func (b *Backend) Capabilities() backend.Capabilities { return b.caps }

// CreateTexture implements backend.Backend.
func (b *Backend) CreateTexture(width, height int, format gputypes.TextureFormat) (backend.Handle, error) {
	if err := backend.ValidateSize(b.caps, width, height, format); err != nil {
		return backend.InvalidHandle, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return backend.InvalidHandle, backend.ErrClosed
	}
	return b.addLocked(newTexture(width, height, format)), nil
}

func (b *Backend) addLocked(t *texture) backend.Handle {
	b.next++
	b.textures[b.next] = t
	return b.next
}

// DestroyTexture implements backend.Backend.
func (b *Backend) DestroyTexture(h backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.textures[h]; !ok {
		return fmt.Errorf("%w: %d", backend.ErrUnknownTexture, h)
	}
	delete(b.textures, h)
	return nil
}

// UploadPixels implements backend.Backend.
func (b *Backend) UploadPixels(h backend.Handle, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupLocked(h)
	if err != nil {
		return err
	}
	if want := t.width * t.height * 4; len(pixels) != want {
		return fmt.Errorf("software: upload of %d bytes into %dx%d texture, want %d",
			len(pixels), t.width, t.height, want)
	}
	t.upload(pixels)
	return nil
}

// ImportFrame implements backend.Backend. Frames are copied.
func (b *Backend) ImportFrame(f backend.Frame) (backend.Handle, error) {
	h, err := b.CreateTexture(f.Width(), f.Height(), gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return backend.InvalidHandle, err
	}
	if err := b.UploadPixels(h, f.Pixels()); err != nil {
		_ = b.DestroyTexture(h)
		return backend.InvalidHandle, err
	}
	return h, nil
}

// Present implements backend.Backend.
func (b *Backend) Present(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.screen == nil {
		return fmt.Errorf("software: present before any pass wrote the screen")
	}
	b.presents++
	return nil
}

// Presents returns how many frames were presented.
func (b *Backend) Presents() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

// ReadPixels implements backend.Backend.
func (b *Backend) ReadPixels(ctx context.Context, h backend.Handle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.lookupLocked(h)
	if err != nil {
		return nil, err
	}
	return t.encode(), nil
}

// ScreenImage returns a copy of the screen target, or nil if nothing was
// rendered to it.
func (b *Backend) ScreenImage() *image.NRGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.screen == nil {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, b.screen.width, b.screen.height))
	copy(img.Pix, b.screen.encode())
	return img
}

// Textures returns the number of live textures, excluding the screen.
func (b *Backend) Textures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.textures)
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.textures = make(map[backend.Handle]*texture)
	b.screen = nil
	return nil
}

func (b *Backend) lookupLocked(h backend.Handle) (*texture, error) {
	if b.closed {
		return nil, backend.ErrClosed
	}
	if h == backend.Screen {
		if b.screen == nil {
			return nil, fmt.Errorf("%w: screen not rendered", backend.ErrUnknownTexture)
		}
		return b.screen, nil
	}
	t, ok := b.textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", backend.ErrUnknownTexture, h)
	}
	return t, nil
}
