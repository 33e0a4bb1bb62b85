package rules

import "github.com/routewarden/routewarden/internal/finding"

// Evaluate runs all six rules over ctx and returns the findings in
// deterministic (ruleId, file, line, column) order (spec §4.8, §5).
func Evaluate(ctx Context) []finding.Finding {
	var all []finding.Finding
	all = append(all, EvaluateAuthBoundary(ctx)...)
	all = append(all, EvaluateRateLimitMissing(ctx)...)
	all = append(all, EvaluateTenancyScopeMissing(ctx)...)
	all = append(all, EvaluateInputValidationMissing(ctx)...)
	all = append(all, EvaluateWrapperUnrecognized(ctx)...)
	all = append(all, EvaluatePublicIntentMissingReason(ctx)...)

	finding.SortFindings(all)
	return all
}
