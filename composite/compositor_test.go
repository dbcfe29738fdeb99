// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/fxgraph/backend"
	"github.com/gogpu/fxgraph/backend/software"
	"github.com/gogpu/fxgraph/blend"
	"github.com/gogpu/fxgraph/resource"
)

const size = 4

func setup(t *testing.T) (*Compositor, *software.Backend, *resource.Pool) {
	t.Helper()
	b := software.New(software.WithWorkers(1))
	pool := resource.NewPool(b, resource.Config{})
	t.Cleanup(func() {
		_ = pool.Close()
		_ = b.Close()
	})
	return New(b, pool), b, pool
}

func solid(t *testing.T, b *software.Backend, r, g, bl, a byte) backend.Handle {
	t.Helper()
	h, err := b.CreateTexture(size, size, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.UploadPixels(h, backend.NewSolidFrame(size, size, r, g, bl, a).Pixels()); err != nil {
		t.Fatal(err)
	}
	return h
}

func readFirst(t *testing.T, b *software.Backend, tex *resource.Texture) [4]byte {
	t.Helper()
	pix, err := b.ReadPixels(context.Background(), tex.Handle())
	if err != nil {
		t.Fatal(err)
	}
	return [4]byte(pix[:4])
}

func near(a, b byte) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestComposeMultiplyHalfOpacity(t *testing.T) {
	c, b, pool := setup(t)
	layers := []Layer{
		{Source: solid(t, b, 128, 128, 128, 255), Opacity: 0.5, Mode: blend.Multiply, Z: 1, Label: "shade"},
		{Source: solid(t, b, 204, 204, 204, 255), Opacity: 1, Mode: blend.Normal, Z: 0, Label: "base"},
	}
	tex, err := c.Compose(context.Background(), layers, Settings{Width: size, Height: size})
	if err != nil {
		t.Fatal(err)
	}
	// base*(0.5*blend + 0.5*base) = 0.8 * (0.5*0.502 + 0.4) = 0.5208
	got := readFirst(t, b, tex)
	if !near(got[0], 133) || !near(got[1], 133) || got[3] != 255 {
		t.Errorf("pixel = %v, want ~133 opaque gray", got)
	}
	if err := c.Release(tex); err != nil {
		t.Fatal(err)
	}
	if s := pool.Stats(); s.InUse != 0 || s.Allocations != 2 {
		t.Errorf("pool stats = %v, want 2 allocations, none in use", s)
	}
}

func TestComposeZOrder(t *testing.T) {
	c, b, _ := setup(t)
	red := solid(t, b, 255, 0, 0, 255)
	blue := solid(t, b, 0, 0, 255, 255)

	tests := []struct {
		name   string
		layers []Layer
		want   [4]byte
	}{
		{
			name: "higher z on top",
			layers: []Layer{
				{Source: red, Opacity: 1, Z: 2},
				{Source: blue, Opacity: 1, Z: 1},
			},
			want: [4]byte{255, 0, 0, 255},
		},
		{
			name: "equal z keeps slice order",
			layers: []Layer{
				{Source: red, Opacity: 1},
				{Source: blue, Opacity: 1},
			},
			want: [4]byte{0, 0, 255, 255},
		},
		{
			name: "zero opacity skipped",
			layers: []Layer{
				{Source: red, Opacity: 1},
				{Source: blue, Opacity: 0, Z: 5},
			},
			want: [4]byte{255, 0, 0, 255},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := c.Compose(context.Background(), tt.layers, Settings{Width: size, Height: size})
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = c.Release(tex) }()
			if got := readFirst(t, b, tex); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrdered(t *testing.T) {
	layers := []Layer{
		{Label: "a", Opacity: 2, Z: 3},
		{Label: "b", Opacity: -1, Z: 0},
		{Label: "c", Opacity: 0.25, Z: 1},
		{Label: "d", Opacity: 1, Z: 1},
	}
	want := []Layer{
		{Label: "c", Opacity: 0.25, Z: 1},
		{Label: "d", Opacity: 1, Z: 1},
		{Label: "a", Opacity: 1, Z: 3},
	}
	if diff := cmp.Diff(want, Ordered(layers)); diff != "" {
		t.Errorf("Ordered() mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeToScreenBackground(t *testing.T) {
	c, b, pool := setup(t)
	s := Settings{Width: size, Height: size, Background: [4]float64{0, 1, 0, 1}}
	if err := c.ComposeToScreen(context.Background(), nil, s); err != nil {
		t.Fatal(err)
	}
	if b.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", b.Presents())
	}
	if got := b.ScreenImage().NRGBAAt(1, 1); got.R != 0 || got.G != 255 || got.A != 255 {
		t.Errorf("screen = %v, want opaque green", got)
	}
	if st := pool.Stats(); st.Allocations != 0 {
		t.Errorf("Allocations = %d, want 0", st.Allocations)
	}

	layer := Layer{Source: solid(t, b, 0, 0, 255, 255), Opacity: 1}
	if err := c.ComposeToScreen(context.Background(), []Layer{layer}, s); err != nil {
		t.Fatal(err)
	}
	if got := b.ScreenImage().NRGBAAt(1, 1); got.B != 255 || got.G != 0 {
		t.Errorf("screen = %v, want blue", got)
	}
	if st := pool.Stats(); st.InUse != 0 {
		t.Errorf("InUse = %d, want 0", st.InUse)
	}
}

func TestComposeErrors(t *testing.T) {
	c, b, pool := setup(t)

	if _, err := c.Compose(context.Background(), nil, Settings{Width: 0, Height: size}); err == nil {
		t.Error("Compose() with empty canvas succeeded")
	}
	big := Settings{Width: software.DefaultMaxTextureSize + 1, Height: 1}
	if _, err := c.Compose(context.Background(), nil, big); !errors.Is(err, backend.ErrResourceExhausted) {
		t.Errorf("Compose() error = %v, want ErrResourceExhausted", err)
	}

	layers := []Layer{
		{Source: solid(t, b, 1, 2, 3, 255), Opacity: 1},
		{Source: backend.Handle(9999), Opacity: 1, Label: "missing"},
	}
	_, err := c.Compose(context.Background(), layers, Settings{Width: size, Height: size})
	if !errors.Is(err, backend.ErrUnknownTexture) {
		t.Errorf("Compose() error = %v, want ErrUnknownTexture", err)
	}
	if s := pool.Stats(); s.InUse != 0 {
		t.Errorf("InUse = %d after failure, want 0", s.InUse)
	}
}
