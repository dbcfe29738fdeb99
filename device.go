// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fxgraph

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/fxgraph/backend"
)

// DeviceHandle provides GPU device access from the host application.
//
// fxgraph RECEIVES a device from the host, it does not create one. GPU
// backends built on the host device take it at construction; the engine
// itself only asks it for the surface format, which becomes the default
// format of composited results.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle without a device, used with CPU
// backends.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ DeviceHandle = NullDeviceHandle{}

// surfaceFormat returns the device's surface format when the engine can
// render to it, and RGBA8Unorm otherwise.
func surfaceFormat(d DeviceHandle) gputypes.TextureFormat {
	if d != nil {
		if f := d.SurfaceFormat(); f != gputypes.TextureFormatUndefined && backend.BytesPerPixel(f) != 0 {
			return f
		}
	}
	return gputypes.TextureFormatRGBA8Unorm
}
