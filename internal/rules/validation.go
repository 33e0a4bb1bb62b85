package rules

import (
	"regexp"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

var zodSchemaRe = regexp.MustCompile(`\bz\.(?:object|string|number|boolean|array|enum|union|record|tuple|date|coerce)\s*\(`)
var safeParseRe = regexp.MustCompile(`\.safeParse\s*\(`)
var valibotRe = regexp.MustCompile(`\bv\.(?:parse|safeParse)\s*\(`)
var validateSyncRe = regexp.MustCompile(`\.validateSync\s*\(`)
var safeActionClientRe = regexp.MustCompile(`createSafeActionClient|actionClient`)
var trpcInputRe = regexp.MustCompile(`\.input\s*\(\s*z\.`)

var parseCallRe = regexp.MustCompile(`(\)|\b[A-Za-z_$][\w$]*)\s*\.\s*parse\s*\(`)
var validateCallRe = regexp.MustCompile(`(\)|\b[A-Za-z_$][\w$]*)\s*\.\s*validate\s*\(`)

var parseBuiltinCallers = map[string]bool{
	"JSON": true, "URL": true, "path": true, "Date": true, "Number": true,
	"BigInt": true, "Buffer": true, "querystring": true, "qs": true,
	"cookie": true, "cookieStore": true,
}
var validateBuiltinCallers = map[string]bool{
	"form": true, "input": true,
}

func hasValidation(src string) bool {
	if zodSchemaRe.MatchString(src) || safeParseRe.MatchString(src) || valibotRe.MatchString(src) ||
		validateSyncRe.MatchString(src) || safeActionClientRe.MatchString(src) || trpcInputRe.MatchString(src) {
		return true
	}
	for _, m := range parseCallRe.FindAllStringSubmatch(src, -1) {
		if m[1] == ")" || !parseBuiltinCallers[m[1]] {
			return true
		}
	}
	for _, m := range validateCallRe.FindAllStringSubmatch(src, -1) {
		if m[1] == ")" || !validateBuiltinCallers[m[1]] {
			return true
		}
	}
	return false
}

func webhookSignatureVerified(src string) bool {
	for _, re := range builtinAuthFilePatterns {
		if re.MatchString(src) {
			return true
		}
	}
	return false
}

// bumpConfidenceAndSeverity raises med confidence to high, and notches
// severity up one rank (low->med->high, high/critical unchanged).
func bumpConfidenceAndSeverity(confidence model.Confidence, severity model.Severity) (model.Confidence, model.Severity) {
	if confidence == model.ConfidenceMedium {
		confidence = model.ConfidenceHigh
	}
	switch severity {
	case model.SeverityLow:
		severity = model.SeverityMedium
	case model.SeverityMedium:
		severity = model.SeverityHigh
	}
	return confidence, severity
}

// EvaluateInputValidationMissing implements INPUT-VALIDATION-MISSING (spec §4.8).
func EvaluateInputValidationMissing(ctx Context) []finding.Finding {
	var findings []finding.Finding
	cap := ruleSeverityCap(ctx.Config, model.RuleInputValidationMissing, model.SeverityHigh)

	emit := func(file string, dbWrite bool, publicIntent *model.PublicIntent) {
		src := stripComments(ctx.source(file))
		if hasValidation(src) {
			return
		}
		severity := model.SeverityHigh
		confidence := model.ConfidenceMedium
		if dbWrite {
			confidence = model.ConfidenceHigh
		}
		if webhookSignatureVerified(src) {
			confidence = model.ConfidenceMedium
		}
		var tags []string
		var extraEvidence []string
		if publicIntent != nil {
			confidence, severity = bumpConfidenceAndSeverity(confidence, severity)
			if hasOutboundFetchWithRequestInfluencedURL(src) {
				tags = append(tags, "ssrf-surface")
				extraEvidence = append(extraEvidence, "performs an outbound fetch whose URL is influenced by request data")
			}
		}

		findings = append(findings, finding.Finding{
			RuleID:           model.RuleInputValidationMissing,
			Severity:         clampSeverity(severity, cap),
			Confidence:       confidence,
			Message:          "mutation-capable endpoint does not validate its input against a schema",
			File:             file,
			Line:             firstMatchLine(src, []*regexp.Regexp{bodyReadRe}),
			Evidence:         extraEvidence,
			ConfidenceReason: "no recognized schema-validation call found in the handler",
			Remediation: []string{
				"Parse the request body against a schema (zod, valibot, or equivalent) before using it.",
			},
			Tags: tags,
		})
	}

	for _, route := range ctx.Routes {
		if route.Signals.MutationEvidence {
			emit(route.File, route.Signals.DBWrite, route.PublicIntent)
		}
	}
	seen := map[string]bool{}
	for _, action := range ctx.Actions {
		if action.Signals.MutationEvidence && !seen[action.File] {
			seen[action.File] = true
			emit(action.File, action.Signals.DBWrite, nil)
		}
	}

	return findings
}
