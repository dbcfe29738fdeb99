// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/fxgraph/internal/cache"
)

// DefaultValidatorCacheSize is the number of distinct sources a Validator
// remembers.
const DefaultValidatorCacheSize = 256

// Validator checks assembled WGSL by compiling it with naga.
// Results are memoized by source text; a frame re-validating an unchanged
// plan costs one map lookup.
//
// Validator is safe for concurrent use.
type Validator struct {
	results *cache.Cache[string, error]
}

// NewValidator creates a validator remembering up to size sources.
// A size <= 0 selects DefaultValidatorCacheSize.
func NewValidator(size int) *Validator {
	if size <= 0 {
		size = DefaultValidatorCacheSize
	}
	return &Validator{results: cache.New[string, error](size)}
}

// Validate compiles source and returns the compiler error, if any.
func (v *Validator) Validate(source string) error {
	return v.results.GetOrCreate(source, func() error {
		if _, err := naga.Compile(source); err != nil {
			return fmt.Errorf("shader: invalid WGSL: %w", err)
		}
		return nil
	})
}

// ValidateProgram assembles p for the given input count and validates it.
func (v *Validator) ValidateProgram(p Program, inputs int) error {
	return v.Validate(p.Source(inputs))
}

// Stats reports memoization statistics.
func (v *Validator) Stats() cache.Stats {
	return v.results.Stats()
}
