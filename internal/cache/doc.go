// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a small generic LRU cache with a soft limit.
//
// It backs memoization of expensive, deterministic work in fxgraph such as
// WGSL validation of assembled shader programs:
//
//	c := cache.New[string, error](128)
//	err := c.GetOrCreate(source, func() error { return validate(source) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
