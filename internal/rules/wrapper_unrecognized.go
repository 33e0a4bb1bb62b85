package rules

import (
	"fmt"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

const wrapperSampleSize = 5

// EvaluateWrapperUnrecognized implements WRAPPER-UNRECOGNIZED (spec §4.8).
func EvaluateWrapperUnrecognized(ctx Context) []finding.Finding {
	cap := ruleSeverityCap(ctx.Config, model.RuleWrapperUnrecognized, model.SeverityHigh)

	relevant := map[string]bool{}
	for _, route := range ctx.Routes {
		if route.Protection == nil {
			continue
		}
		if !route.Protection.Auth.Satisfied && route.Signals.MutationEvidence {
			for _, uw := range route.Protection.Auth.UnverifiedWrappers {
				relevant[uw.Name] = true
			}
		}
		if !route.Protection.RateLimit.Satisfied && route.IsAPI && !isRateLimitExempt(route.Pathname) {
			for _, uw := range route.Protection.RateLimit.UnverifiedWrappers {
				relevant[uw.Name] = true
			}
		}
	}

	var findings []finding.Finding
	for name, wa := range ctx.Wrappers {
		if !relevant[name] {
			continue
		}

		severity := model.SeverityMedium
		if wa.MutationRouteCount > 0 {
			severity = model.SeverityHigh
		}

		status := classifyWrapperStatus(wa)

		sample := wa.UsageFiles
		if len(sample) > wrapperSampleSize {
			sample = sample[:wrapperSampleSize]
		}

		evidence := []string{fmt.Sprintf("wraps %d route(s), sample: %v", wa.UsageCount, sample)}
		evidence = append(evidence, wa.Evidence.AuthDetails...)
		evidence = append(evidence, wa.Evidence.RateLimitDetails...)

		findings = append(findings, finding.Finding{
			RuleID:           model.RuleWrapperUnrecognized,
			Severity:         clampSeverity(severity, cap),
			Confidence:       model.ConfidenceHigh,
			Message:          fmt.Sprintf("wrapper %q could not be verified to enforce auth or rate limiting (%s)", name, status),
			File:             wa.DefinitionFile,
			Evidence:         evidence,
			ConfidenceReason: "wrapper usage across the project is certain; its enforcement is not",
			Remediation: []string{
				"Ensure the wrapper checks its precondition and returns/throws before invoking the handler.",
			},
			Tags: []string{"wrapper"},
		})
	}

	return findings
}

func classifyWrapperStatus(wa *model.WrapperAnalysis) string {
	switch {
	case !wa.Resolved:
		return "unresolved"
	case wa.Evidence.AuthCallPresent && !wa.Evidence.AuthEnforced:
		return "calls-auth-but-enforcement-not-proven"
	case wa.Evidence.RateLimitCallPresent && !wa.Evidence.RateLimitEnforced:
		return "calls-rl-but-enforcement-not-proven"
	default:
		return "resolved-with-no-evidence"
	}
}
