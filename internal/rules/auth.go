package rules

import (
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

var mutationLocatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.(?:create|createMany|update|updateMany|upsert|delete|deleteMany|insert|insertMany)\s*\(`),
	regexp.MustCompile(`\$executeRaw`),
	regexp.MustCompile(`query\s*\(\s*["'` + "`" + `](?:INSERT|UPDATE|DELETE)`),
}

var callbackPathnameRe = regexp.MustCompile(`(?i)/(?:callback|oauth|oidc|sso|scim)(?:/|$)`)
var loginPathnameRe = regexp.MustCompile(`(?i)/(?:login|signin|sign-in|auth/login|auth/signin)(?:/|$)`)

// builtinAuthFilePatterns is the closed set of patterns that suppress
// AUTH-BOUNDARY-MISSING outright: the code already proves its own auth
// boundary through a recognized library or construct (spec §4.8).
var builtinAuthFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\w+\.webhooks\.constructEvent\s*\(`),               // payment webhook verification
	regexp.MustCompile(`new\s+Webhook\s*\([^)]*\)[\s\S]{0,200}\.verify\s*\(`), // svix-style webhook verification
	regexp.MustCompile(`\bverifySignature\s*\(`),
	regexp.MustCompile(`\bverifyVercelSignature\s*\(`),
	regexp.MustCompile(`\bverifyQstashSignature\s*\(`),
	regexp.MustCompile(`\bserve\s*\(\s*\{`), // framework-level serve() job wrappers
	regexp.MustCompile(`\bjwtVerify\s*\(`),  // jose
	regexp.MustCompile(`\bjwt\.verify\s*\(`), // jsonwebtoken
}

var tokenTableLookupRe = regexp.MustCompile(`(?i)\.(?:apiKey|apiToken|accessToken|session)\.find(?:Unique|First)\s*\(`)
var unauthorizedStatusRe = regexp.MustCompile(`\b(?:401|403)\b`)
var bodyReadRe = regexp.MustCompile(`(?:request|req)\.(?:json|formData)\s*\(|req\.body`)

// authSignalPatterns is the exhaustive closed auth-signal set (spec §4.8).
var authSignalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)headers?(?:\.get)?\s*\(\s*["'](?:authorization|x-api-key|x-webhook-secret|x-signature|x-hub-signature)["']`),
	regexp.MustCompile(`(?i)headers?\s*\[\s*["'](?:authorization|x-api-key|x-webhook-secret|x-signature|x-hub-signature)["']\s*\]`),
	regexp.MustCompile(`(?i)\b(?:const|let|var)\s+(?:token|apiKey|signature|webhookSecret|headerValue)\b`),
	regexp.MustCompile(`process\.env\.\w*(?:SECRET|TOKEN|KEY|API_KEY|WEBHOOK)\w*`),
	regexp.MustCompile(`(?i)\b(?:authorization|bearer)\b`),
	regexp.MustCompile(`(?i)\b(?:verify|validate|check)\w*(?:Token|Signature|Auth|Secret|Key)\s*\(`),
}

var authHeaderDirectRe = regexp.MustCompile(`(?i)["']authorization["']`)

var inlineGuardFuncRe = regexp.MustCompile(`\b(?:get|require|check|validate|verify|ensure|load|fetch|update)(?:User|Session|Auth|Account|Identity|Token)\s*\(`)
var falsyGuardRe = regexp.MustCompile(`if\s*\(\s*!\s*\w`)
var guardExitRe = regexp.MustCompile(`throw|return|redirect|\.redirect\s*\(|\.json\s*\(`)

func hasAuthSignal(src string) bool {
	for _, re := range authSignalPatterns {
		if re.MatchString(src) {
			return true
		}
	}
	return false
}

func matchesBuiltinAuthPattern(src string) bool {
	for _, re := range builtinAuthFilePatterns {
		if re.MatchString(src) {
			return true
		}
	}
	if tokenTableLookupRe.MatchString(src) && bodyReadRe.MatchString(src) && unauthorizedStatusRe.MatchString(src) {
		return true
	}
	return hasAuthGuardReturn(src)
}

// hasAuthGuardReturn recognizes a 401/403 return whose surrounding context
// contains an auth signal and occurs before the first mutation evidence.
func hasAuthGuardReturn(src string) bool {
	loc := unauthorizedStatusRe.FindStringIndex(src)
	if loc == nil {
		return false
	}
	mutLine := firstMatchLine(src, mutationLocatorPatterns)
	if mutLine != 0 && lineOf(src, loc[0]) >= mutLine {
		return false
	}
	start := loc[0] - 300
	if start < 0 {
		start = 0
	}
	end := loc[0] + 50
	if end > len(src) {
		end = len(src)
	}
	return hasAuthSignal(src[start:end])
}

// hasInlineAuthGuard recognizes a verb-noun auth helper call followed within
// 15 lines by a falsy check whose guard body exits.
func hasInlineAuthGuard(src string) bool {
	for _, m := range inlineGuardFuncRe.FindAllStringIndex(src, -1) {
		window := linesAfter(src, m[1], 15)
		if loc := falsyGuardRe.FindStringIndex(window); loc != nil {
			guardBody := windowAfter(window, loc[0], 120)
			if guardExitRe.MatchString(guardBody) {
				return true
			}
		}
	}
	return false
}

// hasPossibleCustomAuth is the softer heuristic: verb-noun combos plus a
// direct authorization-header read, with nothing stronger established.
func hasPossibleCustomAuth(src string) bool {
	return inlineGuardFuncRe.MatchString(src) && authHeaderDirectRe.MatchString(src)
}

func severityFromAuthConfidence(confidence model.Confidence, cap model.Severity) model.Severity {
	switch confidence {
	case model.ConfidenceHigh:
		return cap
	case model.ConfidenceMedium:
		return clampSeverity(model.SeverityHigh, cap)
	default:
		return clampSeverity(model.SeverityMedium, cap)
	}
}

func authMessage(pathname string) (string, []string) {
	if strings.Contains(strings.ToLower(pathname), "webhook") {
		return "webhook route handler has no verified signature or authentication boundary", []string{
			"Verify the provider's webhook signature before processing the payload.",
			"Reject requests whose signature header is missing or invalid with a 401/403.",
		}
	}
	return "mutation-capable endpoint has no authentication boundary", []string{
		"Call a recognized auth function (session lookup, token verification) before the mutation.",
		"Return 401/403 when the caller is not authenticated.",
	}
}

// EvaluateAuthBoundary implements AUTH-BOUNDARY-MISSING (spec §4.8).
func EvaluateAuthBoundary(ctx Context) []finding.Finding {
	var findings []finding.Finding
	cap := ruleSeverityCap(ctx.Config, model.RuleAuthBoundaryMissing, model.SeverityCritical)

	for _, route := range ctx.Routes {
		if !route.Signals.MutationEvidence {
			continue
		}
		if f, ok := authFindingForFile(ctx, route.File, route.Pathname, cap); ok {
			findings = append(findings, f)
		}
	}

	seenActionFiles := map[string]bool{}
	for _, action := range ctx.Actions {
		if !action.Signals.MutationEvidence || seenActionFiles[action.File] {
			continue
		}
		seenActionFiles[action.File] = true
		if f, ok := authFindingForFile(ctx, action.File, "", cap); ok {
			findings = append(findings, f)
		}
	}

	for _, proc := range ctx.Procedures {
		if proc.ProcedureKind != model.ProcedureKindMutation {
			continue
		}
		if proc.ProcedureType != model.ProcedureTypePublic && proc.ProcedureType != model.ProcedureTypeUnknown {
			continue
		}
		if !proc.Signals.MutationEvidence {
			continue
		}
		src := ctx.source(proc.File)
		if matchesBuiltinAuthPattern(src) || hasInlineAuthGuard(src) {
			continue
		}
		confidence := model.ConfidenceHigh
		msg, remediation := authMessage(proc.Name)
		findings = append(findings, finding.Finding{
			RuleID:           model.RuleAuthBoundaryMissing,
			Severity:         severityFromAuthConfidence(confidence, cap),
			Confidence:       confidence,
			Message:          msg,
			File:             proc.File,
			Line:             proc.Line,
			Evidence:         proc.Signals.Details,
			ConfidenceReason: "RPC procedure has no auth evidence and no unverified wrapper to defer to",
			Remediation:      remediation,
			Tags:             []string{"rpc"},
		})
	}

	return findings
}

func authFindingForFile(ctx Context, file, pathname string, cap model.Severity) (finding.Finding, bool) {
	for _, route := range ctx.Routes {
		if route.File == file && route.Protection != nil {
			if route.Protection.Auth.Satisfied {
				return finding.Finding{}, false
			}
			if len(route.Protection.Auth.UnverifiedWrappers) > 0 {
				return finding.Finding{}, false
			}
		}
	}
	if allowlisted(file, ctx.Hints.Auth.AllowlistPaths) {
		return finding.Finding{}, false
	}

	src := ctx.source(file)
	if matchesBuiltinAuthPattern(src) || hasInlineAuthGuard(src) {
		return finding.Finding{}, false
	}

	confidence := model.ConfidenceHigh
	var tags []string
	if pathname != "" && callbackPathnameRe.MatchString(pathname) {
		confidence = model.ConfidenceMedium
		tags = append(tags, "callback")
	} else if hasPossibleCustomAuth(src) {
		confidence = model.ConfidenceMedium
	}

	line := firstMatchLine(src, mutationLocatorPatterns)
	msg, remediation := authMessage(pathname)

	return finding.Finding{
		RuleID:           model.RuleAuthBoundaryMissing,
		Severity:         severityFromAuthConfidence(confidence, cap),
		Confidence:       confidence,
		Message:          msg,
		File:             file,
		Line:             line,
		ConfidenceReason: "no recognized auth call, wrapper, or middleware coverage found before the mutation",
		Remediation:      remediation,
		Tags:             tags,
	}, true
}
