// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"context"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
)

type stubBackend struct{ name string }

func (s stubBackend) Name() string               { return s.name }
func (s stubBackend) Capabilities() Capabilities { return Capabilities{} }
func (s stubBackend) CreateTexture(int, int, gputypes.TextureFormat) (Handle, error) {
	return 1, nil
}
func (s stubBackend) DestroyTexture(Handle) error                        { return nil }
func (s stubBackend) UploadPixels(Handle, []byte) error                  { return nil }
func (s stubBackend) ImportFrame(Frame) (Handle, error)                  { return 1, nil }
func (s stubBackend) ExecutePass(context.Context, *Invocation) error     { return nil }
func (s stubBackend) Present(context.Context) error                      { return nil }
func (s stubBackend) ReadPixels(context.Context, Handle) ([]byte, error) { return nil, nil }
func (s stubBackend) Close() error                                       { return nil }

func TestRegistry(t *testing.T) {
	t.Cleanup(func() {
		Unregister("a")
		Unregister("b")
		SetPriority("vulkan", "metal", "dx12", "gles", NameSoftware)
	})
	Register("a", func() Backend { return stubBackend{"a"} })
	Register("b", func() Backend { return nil })

	if !IsRegistered("a") || IsRegistered("zzz") {
		t.Error("IsRegistered mismatch")
	}
	if names := Available(); !slices.Contains(names, "a") || !slices.IsSorted(names) {
		t.Errorf("Available = %v", names)
	}
	if Get("zzz") != nil {
		t.Error("Get(unknown) != nil")
	}

	SetPriority("b", "a")
	if b := Default(); b == nil || b.Name() != "a" {
		t.Errorf("Default = %v, want a (b unavailable)", b)
	}
}

func TestValidateSize(t *testing.T) {
	caps := Capabilities{MaxTextureSize: 4096}
	tests := []struct {
		w, h   int
		format gputypes.TextureFormat
		ok     bool
	}{
		{1920, 1080, gputypes.TextureFormatRGBA8Unorm, true},
		{4096, 4096, gputypes.TextureFormatRGBA16Float, true},
		{8192, 10, gputypes.TextureFormatRGBA8Unorm, false},
		{0, 10, gputypes.TextureFormatRGBA8Unorm, false},
		{10, 10, gputypes.TextureFormatUndefined, false},
	}
	for _, tt := range tests {
		if err := ValidateSize(caps, tt.w, tt.h, tt.format); (err == nil) != tt.ok {
			t.Errorf("ValidateSize(%d, %d, %v) = %v", tt.w, tt.h, tt.format, err)
		}
	}
}

func TestNewImageFrame(t *testing.T) {
	f := NewSolidFrame(2, 3, 10, 20, 30, 40)
	if f.Width() != 2 || f.Height() != 3 || len(f.Pixels()) != 24 {
		t.Fatalf("frame %dx%d with %d bytes", f.Width(), f.Height(), len(f.Pixels()))
	}
	again := NewImageFrame(f.Image())
	if &again.Pixels()[0] != &f.Pixels()[0] {
		t.Error("tight NRGBA image was copied")
	}
}
