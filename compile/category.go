// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compile

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Category groups effects that can share one shader invocation.
type Category uint8

const (
	// CategoryUnknown passes never merge.
	CategoryUnknown Category = iota
	// CategoryColor is per-pixel color math.
	CategoryColor
	// CategoryTransform is geometric resampling.
	CategoryTransform
	// CategoryBlur is neighborhood filtering.
	CategoryBlur
	// CategoryBlend combines inputs.
	CategoryBlend
)

var categoryNames = [...]string{"unknown", "color", "transform", "blur", "blend"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", c)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

var (
	colorPatterns = []string{
		"brightness", "contrast", "saturation", "opacity", "invert",
		"exposure", "gamma", "hue", "tint", "levels", "curves", "color",
		"grayscale", "sepia", "vibrance", "temperature",
	}
	transformPatterns = []string{"scale", "rotate", "translate", "transform", "flip", "crop"}
)

// Classify returns the category of an effect name. Matching is
// case-insensitive and by substring; blur and blend win over the rest.
func Classify(name string) Category {
	folded := cases.Fold().String(name)
	switch {
	case strings.Contains(folded, "blur"):
		return CategoryBlur
	case strings.Contains(folded, "blend"):
		return CategoryBlend
	case containsAny(folded, colorPatterns):
		return CategoryColor
	case containsAny(folded, transformPatterns):
		return CategoryTransform
	}
	return CategoryUnknown
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// PassCategory returns the category of the first stage with a known
// category, or CategoryUnknown.
func PassCategory(p Pass) Category {
	for _, k := range p.Program.Kernels() {
		if c := Classify(k); c != CategoryUnknown {
			return c
		}
	}
	return CategoryUnknown
}
