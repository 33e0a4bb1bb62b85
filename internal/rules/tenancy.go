package rules

import (
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

var tenancyMethodRe = regexp.MustCompile(`\.(findUnique|findFirst|findMany|update|updateMany|delete|deleteMany|upsert)\s*\(`)

var tenancyWriteMethods = map[string]bool{
	"update": true, "updateMany": true, "delete": true, "deleteMany": true, "upsert": true,
}

// EvaluateTenancyScopeMissing implements TENANCY-SCOPE-MISSING (spec §4.8).
func EvaluateTenancyScopeMissing(ctx Context) []finding.Finding {
	if !ctx.ORMPresent || !ctx.SchemaHasTenantField || ctx.TenancyBootstrapSafe {
		return nil
	}

	orgFields := ctx.Hints.Tenancy.OrgFieldNames
	cap := ruleSeverityCap(ctx.Config, model.RuleTenancyScopeMissing, model.SeverityHigh)

	var findings []finding.Finding
	for _, file := range ctx.IncludeFiles {
		src := ctx.source(file)
		if src == "" {
			continue
		}
		lines := strings.Split(src, "\n")
		for i, line := range lines {
			m := tenancyMethodRe.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			method := line[m[2]:m[3]]

			end := i + 16
			if end > len(lines) {
				end = len(lines)
			}
			window := strings.Join(lines[i:end], "\n")
			if containsAny(window, orgFields) {
				continue
			}

			confidence := model.ConfidenceMedium
			severity := model.SeverityMedium
			if tenancyWriteMethods[method] {
				confidence = model.ConfidenceHigh
				severity = model.SeverityHigh
			}

			findings = append(findings, finding.Finding{
				RuleID:           model.RuleTenancyScopeMissing,
				Severity:         clampSeverity(severity, cap),
				Confidence:       confidence,
				Message:          "database query over a tenant-scoped model has no tenant field in its where clause",
				File:             file,
				Line:             i + 1,
				Snippet:          strings.TrimSpace(line),
				ConfidenceReason: "no configured org-field name found within 15 lines of the ." + method + "( call",
				Remediation: []string{
					"Add the tenant field (" + strings.Join(orgFields, ", ") + ") to the query's where clause.",
				},
			})
		}
	}
	return findings
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
