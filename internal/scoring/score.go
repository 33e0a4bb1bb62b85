// Package scoring computes the 0-100 readiness score from a set of active
// findings, with confidence-weighted penalties and a per-rule cap (spec §4.9).
package scoring

import (
	"math"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

const defaultStart = 100
const defaultMaxPenaltyPerRuleFraction = 0.35

var defaultPenalties = map[model.Severity]float64{
	model.SeverityCritical: 15,
	model.SeverityHigh:     6,
	model.SeverityMedium:   3,
	model.SeverityLow:      1,
}

var defaultConfidenceWeights = map[model.Confidence]float64{
	model.ConfidenceHigh:   1.0,
	model.ConfidenceMedium: 0.25,
	model.ConfidenceLow:    0.1,
}

// Compute returns the final 0-100 score for findings under cfg's scoring
// overrides (or the canonical defaults when unset).
func Compute(findings []finding.Finding, cfg model.ScoringConfig) int {
	start := defaultStart
	if cfg.Start > 0 {
		start = cfg.Start
	}

	penalties := defaultPenalties
	if cfg.Penalties != nil {
		penalties = mergeSeverityFloats(defaultPenalties, cfg.Penalties)
	}
	weights := defaultConfidenceWeights
	if cfg.ConfidenceWeights != nil {
		weights = mergeConfidenceFloats(defaultConfidenceWeights, cfg.ConfidenceWeights)
	}

	maxPerRule := float64(start) * defaultMaxPenaltyPerRuleFraction
	if cfg.MaxPenaltyPerRule != nil {
		maxPerRule = *cfg.MaxPenaltyPerRule
	}

	perRuleTotal := map[model.RuleID]float64{}
	for _, f := range findings {
		penalty := penalties[f.Severity] * weights[f.Confidence]
		perRuleTotal[f.RuleID] += penalty
	}

	total := 0.0
	for _, sum := range perRuleTotal {
		if sum > maxPerRule {
			sum = maxPerRule
		}
		total += sum
	}

	score := float64(start) - total
	if score < 0 {
		score = 0
	}
	return int(math.Floor(score + 0.5))
}

func mergeSeverityFloats(base map[model.Severity]float64, override map[model.Severity]int) map[model.Severity]float64 {
	merged := make(map[model.Severity]float64, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = float64(v)
	}
	return merged
}

func mergeConfidenceFloats(base, override map[model.Confidence]float64) map[model.Confidence]float64 {
	merged := make(map[model.Confidence]float64, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
