// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"slices"
	"sync"
)

// NameSoftware is the CPU reference backend.
const NameSoftware = "software"

// Factory creates a backend instance. It returns nil when the backend
// cannot run on this machine.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for Default (first available wins). Unlisted
	// backends are tried afterwards in name order.
	backendPriority = []string{"vulkan", "metal", "dx12", "gles", NameSoftware}
)

// Register registers a backend factory under name, replacing any previous
// registration. Backend packages call it from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// SetPriority replaces the selection order used by Default.
func SetPriority(names ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backendPriority = slices.Clone(names)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a new instance of the named backend, or nil.
func Get(name string) Backend {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available backend, or nil if none can run.
func Default() Backend {
	registryMu.RLock()
	order := slices.Clone(backendPriority)
	listed := len(order)
	for name := range backends {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	registryMu.RUnlock()
	slices.Sort(order[listed:])

	for _, name := range order {
		if b := Get(name); b != nil {
			return b
		}
	}
	return nil
}
