package rules

import (
	"strings"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

// EvaluatePublicIntentMissingReason implements PUBLIC-INTENT-MISSING-REASON
// (spec §4.8).
func EvaluatePublicIntentMissingReason(ctx Context) []finding.Finding {
	cap := ruleSeverityCap(ctx.Config, model.RulePublicIntentNoReason, model.SeverityHigh)

	var findings []finding.Finding
	for _, route := range ctx.Routes {
		if route.MalformedPublicIntent == nil {
			continue
		}
		findings = append(findings, finding.Finding{
			RuleID:           model.RulePublicIntentNoReason,
			Severity:         clampSeverity(model.SeverityMedium, cap),
			Confidence:       model.ConfidenceHigh,
			Message:          "public-intent directive is missing a usable reason",
			File:             route.File,
			Line:             route.MalformedPublicIntent.Line,
			Snippet:          strings.TrimSpace(route.MalformedPublicIntent.RawText),
			ConfidenceReason: "the directive's reason text is absent or empty",
			Remediation: []string{
				`Add a non-empty reason, e.g. // <tool>:public-intent reason="..."`,
			},
		})
	}
	return findings
}
