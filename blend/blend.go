// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package blend implements the separable blend modes and alpha compositing
// used to layer clips.
//
// Blend modes are pure per-channel functions B(base, blend) over straight
// (unpremultiplied) values in [0, 1], following the W3C Compositing and
// Blending Level 1 definitions. Alpha compositing is a separate, final step
// applied after the blend-mode color math, using the premultiplied
// Porter-Duff "over" formula.
//
// References:
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
//   - Porter-Duff: "Compositing Digital Images" (1984)
package blend

import (
	"fmt"
	"math"
	"strings"
)

// Mode is a separable blend mode.
type Mode uint8

const (
	Normal     Mode = iota // B = S
	Multiply               // B = D * S
	Screen                 // B = D + S - D*S
	Overlay                // HardLight with swapped layers
	Add                    // B = min(1, D + S)
	Subtract               // B = max(0, D - S)
	Difference             // B = |D - S|
	Darken                 // B = min(D, S)
	Lighten                // B = max(D, S)
	ColorDodge             // B = min(1, D / (1 - S))
	ColorBurn              // B = 1 - min(1, (1 - D) / S)
	HardLight              // Multiply or Screen depending on source
	SoftLight              // Soft version of HardLight
	Exclusion              // B = D + S - 2*D*S

	modeCount
)

var modeNames = [modeCount]string{
	"normal", "multiply", "screen", "overlay", "add", "subtract", "difference",
	"darken", "lighten", "color-dodge", "color-burn", "hard-light", "soft-light",
	"exclusion",
}

// Modes returns every supported mode in declaration order.
func Modes() []Mode {
	modes := make([]Mode, modeCount)
	for i := range modes {
		modes[i] = Mode(i)
	}
	return modes
}

// String returns the canonical kebab-case name of the mode.
func (m Mode) String() string {
	if m < modeCount {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m < modeCount }

// ParseMode parses a mode name. Matching ignores case and accepts "_",
// " " or no separator in place of "-" ("ColorDodge", "color_dodge").
func ParseMode(name string) (Mode, error) {
	key := canonical(name)
	for i, n := range modeNames {
		if canonical(n) == key {
			return Mode(i), nil
		}
	}
	return Normal, fmt.Errorf("blend: unknown mode %q", name)
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("blend: invalid mode %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ChannelFunc is a per-channel blend function of backdrop (base) and source
// (blend) values in [0, 1].
type ChannelFunc func(base, blend float64) float64

// Func returns the channel function for the mode.
// Unknown modes fall back to Normal.
func Func(m Mode) ChannelFunc {
	switch m {
	case Multiply:
		return multiply
	case Screen:
		return screen
	case Overlay:
		return func(b, s float64) float64 { return hardLight(s, b) }
	case Add:
		return func(b, s float64) float64 { return math.Min(1, b+s) }
	case Subtract:
		return func(b, s float64) float64 { return math.Max(0, b-s) }
	case Difference:
		return func(b, s float64) float64 { return math.Abs(b - s) }
	case Darken:
		return math.Min
	case Lighten:
		return math.Max
	case ColorDodge:
		return colorDodge
	case ColorBurn:
		return colorBurn
	case HardLight:
		return hardLight
	case SoftLight:
		return softLight
	case Exclusion:
		return func(b, s float64) float64 { return b + s - 2*b*s }
	default:
		return func(_, s float64) float64 { return s }
	}
}

func multiply(b, s float64) float64 { return b * s }

func screen(b, s float64) float64 { return b + s - b*s }

// hardLight: if Cs <= 0.5: Multiply(Cb, 2*Cs), else: Screen(Cb, 2*Cs - 1)
func hardLight(b, s float64) float64 {
	if s <= 0.5 {
		return multiply(b, 2*s)
	}
	return screen(b, 2*s-1)
}

// colorDodge: if Cb == 0: 0, if Cs == 1: 1, else min(1, Cb / (1 - Cs))
func colorDodge(b, s float64) float64 {
	if b <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return math.Min(1, b/(1-s))
}

// colorBurn: if Cb == 1: 1, if Cs == 0: 0, else 1 - min(1, (1 - Cb) / Cs)
func colorBurn(b, s float64) float64 {
	if b >= 1 {
		return 1
	}
	if s <= 0 {
		return 0
	}
	return 1 - math.Min(1, (1-b)/s)
}

func softLight(b, s float64) float64 {
	if s <= 0.5 {
		return b - (1-2*s)*b*(1-b)
	}
	var d float64
	if b <= 0.25 {
		d = ((16*b-12)*b + 4) * b
	} else {
		d = math.Sqrt(b)
	}
	return b + (2*s-1)*(d-b)
}
