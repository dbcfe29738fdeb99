// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource pools intermediate render textures by size and format.
//
// The pool is a plain descriptor-keyed cache with explicit Acquire and
// Release. It performs no dependency analysis: the render executor decides
// when a texture's last reader has run and only then releases it.
package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"go.uber.org/multierr"

	"github.com/gogpu/fxgraph/backend"
)

// Pool errors.
var (
	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("resource: pool closed")

	// ErrForeignTexture is returned when releasing a texture this pool did
	// not hand out.
	ErrForeignTexture = errors.New("resource: texture not owned by pool")

	// ErrNotInUse is returned when releasing an idle texture.
	ErrNotInUse = errors.New("resource: texture already released")
)

// DefaultMaxMemoryMB is the pooled memory budget used when Config leaves it
// unset.
const DefaultMaxMemoryMB = 512

// Descriptor is the pool key.
type Descriptor struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// Bytes returns the storage size of a texture with this descriptor.
func (d Descriptor) Bytes() uint64 {
	//nolint:gosec // G115: sizes validated by Acquire
	return uint64(d.Width) * uint64(d.Height) * uint64(backend.BytesPerPixel(d.Format))
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d/%v", d.Width, d.Height, d.Format)
}

// Texture is a texture handed out by a Pool.
type Texture struct {
	desc   Descriptor
	handle backend.Handle
	inUse  bool
	pooled bool
}

// Descriptor returns the size and format.
func (t *Texture) Descriptor() Descriptor { return t.desc }

// Handle returns the backend handle.
func (t *Texture) Handle() backend.Handle { return t.handle }

// InUse reports whether the texture is currently acquired.
func (t *Texture) InUse() bool { return t.inUse }

// Pooled reports whether the texture returns to the pool on release.
// Overflow textures allocated past the budget are destroyed instead.
func (t *Texture) Pooled() bool { return t.pooled }

// Allocator creates and destroys backend textures. backend.Backend
// satisfies it.
type Allocator interface {
	CreateTexture(width, height int, format gputypes.TextureFormat) (backend.Handle, error)
	DestroyTexture(h backend.Handle) error
}

// Config holds pool limits.
type Config struct {
	// MaxMemoryMB bounds the memory of pooled textures, idle or in use.
	// Defaults to DefaultMaxMemoryMB if <= 0.
	MaxMemoryMB int

	// MaxIdlePerBucket bounds idle textures kept per descriptor. Zero
	// means unlimited.
	MaxIdlePerBucket int
}

// Stats describes pool usage.
type Stats struct {
	// Textures is the number of pooled textures, idle or in use.
	Textures int
	InUse    int
	Idle     int
	// Overflow is the number of live textures allocated past the budget.
	Overflow int
	Buckets  int

	UsedBytes   uint64
	BudgetBytes uint64

	// Allocations, Reuses and Overflows are lifetime counters.
	Allocations uint64
	Reuses      uint64
	Overflows   uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Pool[%d textures (%d in use, %d idle, %d overflow), %d/%d MB, %d allocs, %d reuses]",
		s.Textures, s.InUse, s.Idle, s.Overflow,
		s.UsedBytes/(1024*1024), s.BudgetBytes/(1024*1024),
		s.Allocations, s.Reuses)
}

// Pool caches textures by descriptor.
//
// Pool is safe for concurrent use, although the render executor is its
// only intended client.
type Pool struct {
	mu sync.Mutex

	alloc   Allocator
	budget  uint64
	used    uint64
	maxIdle int

	idle     map[Descriptor][]*Texture
	pooled   map[*Texture]struct{}
	overflow map[*Texture]struct{}

	allocations uint64
	reuses      uint64
	overflows   uint64

	closed bool
}

// NewPool creates a pool allocating through alloc.
func NewPool(alloc Allocator, config Config) *Pool {
	maxMB := config.MaxMemoryMB
	if maxMB <= 0 {
		maxMB = DefaultMaxMemoryMB
	}
	//nolint:gosec // G115: maxMB is positive
	return &Pool{
		alloc:    alloc,
		budget:   uint64(maxMB) * 1024 * 1024,
		maxIdle:  max(config.MaxIdlePerBucket, 0),
		idle:     make(map[Descriptor][]*Texture),
		pooled:   make(map[*Texture]struct{}),
		overflow: make(map[*Texture]struct{}),
	}
}

// Acquire returns a texture with exactly the given descriptor, reusing an
// idle one when possible. When a new texture would exceed the memory budget
// it is allocated outside the pool and destroyed on release.
func (p *Pool) Acquire(width, height int, format gputypes.TextureFormat) (*Texture, error) {
	desc := Descriptor{Width: width, Height: height, Format: format}
	if width <= 0 || height <= 0 || backend.BytesPerPixel(format) == 0 {
		return nil, fmt.Errorf("resource: invalid texture descriptor %v", desc)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	if bucket := p.idle[desc]; len(bucket) > 0 {
		tex := bucket[len(bucket)-1]
		p.idle[desc] = bucket[:len(bucket)-1]
		tex.inUse = true
		p.reuses++
		return tex, nil
	}

	h, err := p.alloc.CreateTexture(width, height, format)
	if err != nil {
		return nil, fmt.Errorf("resource: allocate %v: %w", desc, err)
	}
	p.allocations++
	tex := &Texture{desc: desc, handle: h, inUse: true}

	if p.used+desc.Bytes() > p.budget {
		p.overflow[tex] = struct{}{}
		p.overflows++
		slogger().Warn("resource: pool budget exceeded, allocating outside pool",
			"descriptor", desc.String(), "used_bytes", p.used, "budget_bytes", p.budget)
		return tex, nil
	}
	tex.pooled = true
	p.pooled[tex] = struct{}{}
	p.used += desc.Bytes()
	return tex, nil
}

// Release returns a texture for reuse. Overflow textures, and textures
// beyond MaxIdlePerBucket, are destroyed.
func (p *Pool) Release(tex *Texture) error {
	if tex == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	if _, ok := p.overflow[tex]; ok {
		delete(p.overflow, tex)
		tex.inUse = false
		return p.alloc.DestroyTexture(tex.handle)
	}
	if _, ok := p.pooled[tex]; !ok {
		return ErrForeignTexture
	}
	if !tex.inUse {
		return fmt.Errorf("%w: %v", ErrNotInUse, tex.desc)
	}
	tex.inUse = false

	if p.maxIdle > 0 && len(p.idle[tex.desc]) >= p.maxIdle {
		return p.destroyLocked(tex)
	}
	p.idle[tex.desc] = append(p.idle[tex.desc], tex)
	return nil
}

// Prune destroys every idle texture.
func (p *Pool) Prune() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for desc := range p.idle {
		err = multierr.Append(err, p.pruneLocked(desc))
	}
	return err
}

// PruneBucket destroys the idle textures of one descriptor.
func (p *Pool) PruneBucket(desc Descriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pruneLocked(desc)
}

func (p *Pool) pruneLocked(desc Descriptor) error {
	var err error
	for _, tex := range p.idle[desc] {
		err = multierr.Append(err, p.destroyLocked(tex))
	}
	delete(p.idle, desc)
	return err
}

func (p *Pool) destroyLocked(tex *Texture) error {
	delete(p.pooled, tex)
	p.used -= tex.desc.Bytes()
	tex.pooled = false
	return p.alloc.DestroyTexture(tex.handle)
}

// Stats returns current usage.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{
		Textures:    len(p.pooled),
		Overflow:    len(p.overflow),
		UsedBytes:   p.used,
		BudgetBytes: p.budget,
		Allocations: p.allocations,
		Reuses:      p.reuses,
		Overflows:   p.overflows,
	}
	for _, bucket := range p.idle {
		s.Idle += len(bucket)
	}
	s.InUse = s.Textures - s.Idle
	buckets := make(map[Descriptor]struct{})
	for tex := range p.pooled {
		buckets[tex.desc] = struct{}{}
	}
	s.Buckets = len(buckets)
	return s
}

// Close destroys every texture, including ones still in use. Errors from
// the allocator are combined.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	for tex := range p.pooled {
		err = multierr.Append(err, p.alloc.DestroyTexture(tex.handle))
		tex.inUse, tex.pooled = false, false
	}
	for tex := range p.overflow {
		err = multierr.Append(err, p.alloc.DestroyTexture(tex.handle))
		tex.inUse = false
	}
	p.idle = make(map[Descriptor][]*Texture)
	p.pooled = make(map[*Texture]struct{})
	p.overflow = make(map[*Texture]struct{})
	p.used = 0
	return err
}
