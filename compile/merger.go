// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compile

import (
	"slices"

	"github.com/gogpu/fxgraph/shader"
)

// MergeOption configures a Merger.
type MergeOption func(*Merger)

// WithMaxStages caps the number of stages in a fused pass. Zero means no
// limit. Backends report their limit in Capabilities.MaxFusedStages.
func WithMaxStages(n int) MergeOption {
	return func(m *Merger) { m.maxStages = max(n, 0) }
}

// Merger fuses adjacent compatible passes. It is stateless apart from its
// options and may be shared.
type Merger struct {
	maxStages int
}

// NewMerger returns a merger.
func NewMerger(opts ...MergeOption) *Merger {
	m := &Merger{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge fuses runs of compatible passes greedily from left to right and
// returns the new pass list. The input is not modified.
func (m *Merger) Merge(passes []Pass) []Pass {
	consumers := countConsumers(passes)
	out := make([]Pass, 0, len(passes))
	for _, p := range passes {
		if n := len(out); n > 0 && m.mergeable(out[n-1], p, consumers) {
			out[n-1] = MergeTwo(out[n-1], p)
			continue
		}
		out = append(out, p.Clone())
	}
	if len(out) < len(passes) {
		slogger().Debug("compile: passes merged", "before", len(passes), "after", len(out))
	}
	return out
}

// CanMerge reports whether b may be fused into a, looking only at the pair:
// b reads exactly a's output and both share a known category.
func CanMerge(a, b Pass) bool {
	if len(b.Inputs) != 1 || b.Inputs[0] != a.Output || a.ToScreen() {
		return false
	}
	ca := PassCategory(a)
	return ca != CategoryUnknown && ca == PassCategory(b)
}

// mergeable adds sequence-level checks to CanMerge: a's output must have no
// other consumer, since fusion stops it from being written, and the stage
// cap must hold.
func (m *Merger) mergeable(a, b Pass, consumers map[string]int) bool {
	if !CanMerge(a, b) || consumers[a.Output] != 1 {
		return false
	}
	return m.maxStages == 0 || a.Program.Len()+b.Program.Len() <= m.maxStages
}

// MergeTwo fuses b into a. The result reads a's inputs, writes b's output
// and runs a's stages followed by b's.
func MergeTwo(a, b Pass) Pass {
	uniforms := make(shader.Uniforms, 0, len(a.Uniforms)+len(b.Uniforms))
	uniforms = appendStageUniforms(uniforms, a, 0)
	uniforms = appendStageUniforms(uniforms, b, a.Program.Len())
	return Pass{
		ID:       "merged-" + a.ID + "-" + b.ID,
		Nodes:    slices.Concat(a.Nodes, b.Nodes),
		Program:  shader.Concat(a.Program, b.Program),
		Inputs:   slices.Clone(a.Inputs),
		Output:   b.Output,
		Uniforms: uniforms,
	}
}

// appendStageUniforms re-keys p's uniforms as pass{offset+i}_name.
func appendStageUniforms(dst shader.Uniforms, p Pass, offset int) shader.Uniforms {
	stages := p.Program.Len()
	for i := 0; i < max(stages, 1); i++ {
		dst = append(dst, p.Uniforms.ForStage(i, stages).Namespaced(offset+i)...)
	}
	return dst
}

func countConsumers(passes []Pass) map[string]int {
	n := make(map[string]int)
	for _, p := range passes {
		for _, in := range p.Inputs {
			n[in]++
		}
	}
	return n
}

// PassAnalysis describes one pass for diagnostics.
type PassAnalysis struct {
	PassID   string   `json:"passId"`
	Category Category `json:"category"`
	// MergeableWithPrevious reports whether Merge fuses this pass into the
	// one before it, which may itself already be a fused run.
	MergeableWithPrevious bool `json:"mergeableWithPrevious"`
	// Dependencies are the ids of earlier passes whose outputs this pass
	// reads.
	Dependencies []string `json:"dependencies"`
}

// Analyze reports per-pass categories, merge eligibility and dependencies
// without changing anything. Eligibility is checked against the run Merge
// has accumulated so far, so the stage cap is honored.
func (m *Merger) Analyze(passes []Pass) []PassAnalysis {
	consumers := countConsumers(passes)
	producedBy := make(map[string]string, len(passes))
	out := make([]PassAnalysis, len(passes))
	var run Pass
	for i, p := range passes {
		a := PassAnalysis{PassID: p.ID, Category: PassCategory(p)}
		if i > 0 && m.mergeable(run, p, consumers) {
			a.MergeableWithPrevious = true
			run = MergeTwo(run, p)
		} else {
			run = p
		}
		for _, in := range p.Inputs {
			if id, ok := producedBy[in]; ok && !slices.Contains(a.Dependencies, id) {
				a.Dependencies = append(a.Dependencies, id)
			}
		}
		producedBy[p.Output] = p.ID
		out[i] = a
	}
	return out
}

// Stats summarizes how much merging would save.
type Stats struct {
	TotalPasses int `json:"totalPasses"`
	// MergeablePasses counts passes that Merge places in a fused pass of
	// two or more stages.
	MergeablePasses int `json:"mergeablePasses"`
	// EstimatedReduction is the number of passes Merge removes.
	EstimatedReduction int `json:"estimatedReduction"`
	// Ratio is EstimatedReduction / TotalPasses.
	Ratio float64 `json:"ratio"`
}

// OptimizationStats computes Stats for a pass list.
func (m *Merger) OptimizationStats(passes []Pass) Stats {
	s := Stats{TotalPasses: len(passes)}
	analysis := m.Analyze(passes)
	for i, a := range analysis {
		if !a.MergeableWithPrevious {
			continue
		}
		s.MergeablePasses++
		s.EstimatedReduction++
		if !analysis[i-1].MergeableWithPrevious {
			s.MergeablePasses++ // run head
		}
	}
	if s.TotalPasses > 0 {
		s.Ratio = float64(s.EstimatedReduction) / float64(s.TotalPasses)
	}
	return s
}
