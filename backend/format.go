// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// BytesPerPixel returns the storage size of one texel, or 0 for formats the
// engine does not use.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	}
	return 0
}

// IsFloat reports whether texels are stored as floating point.
func IsFloat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatRGBA16Float || f == gputypes.TextureFormatRGBA32Float
}

// ValidateSize checks a texture request against the capabilities.
func ValidateSize(c Capabilities, width, height int, format gputypes.TextureFormat) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("backend: invalid texture size %dx%d", width, height)
	}
	if c.MaxTextureSize > 0 && (width > c.MaxTextureSize || height > c.MaxTextureSize) {
		return fmt.Errorf("%w: %dx%d exceeds max texture size %d",
			ErrResourceExhausted, width, height, c.MaxTextureSize)
	}
	if BytesPerPixel(format) == 0 {
		return fmt.Errorf("backend: unsupported texture format %v", format)
	}
	return nil
}
