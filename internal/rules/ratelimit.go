package rules

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

var rateLimitExemptPathRe = regexp.MustCompile(`(?i)/(?:health|ping|ready|live)$|/_next/|/cron/|/tasks/`)
var rateLimitFrameworkManagedRe = regexp.MustCompile(`(?i)auth/\[\.\.\.\w+\]|callback(?:/|$)|/oauth/|/saml/|/og(?:/|$)`)
var publicUploadPathRe = regexp.MustCompile(`(?i)/upload`)
var putCallRe = regexp.MustCompile(`\.put\s*\(`)
var cronKeyAuthRe = regexp.MustCompile(`CRON_API_KEY|CRON_SECRET`)
var outboundFetchRe = regexp.MustCompile(`(?:\W|^)fetch\s*\(|\baxios(?:\.\w+)?\s*\(|\bgot(?:\.\w+)?\s*\(|\bundici\.request\s*\(|https?\.(?:get|request)\s*\(`)
var requestInfluencedURLRe = regexp.MustCompile(`searchParams\.get\s*\(|new URL\s*\(\s*req(?:uest)?\.url|req(?:uest)?\.url|req(?:uest)?\.query|params\.`)

func isRateLimitExempt(pathname string) bool {
	if pathname == "" {
		return false
	}
	lower := strings.ToLower(pathname)
	if rateLimitExemptPathRe.MatchString(pathname) || rateLimitFrameworkManagedRe.MatchString(pathname) {
		return true
	}
	return strings.Contains(lower, "webhook")
}

func isStronglyEnforced(status model.ProtectionStatus) bool {
	return status.Satisfied && status.Enforced
}

func hasOutboundFetchWithRequestInfluencedURL(src string) bool {
	return outboundFetchRe.MatchString(src) && requestInfluencedURLRe.MatchString(src)
}

// EvaluateRateLimitMissing implements RATE-LIMIT-MISSING (spec §4.8).
func EvaluateRateLimitMissing(ctx Context) []finding.Finding {
	var findings []finding.Finding
	cap := ruleSeverityCap(ctx.Config, model.RuleRateLimitMissing, model.SeverityCritical)

	for _, route := range ctx.Routes {
		if !route.IsAPI || isRateLimitExempt(route.Pathname) {
			continue
		}
		if strings.Contains(filepath.ToSlash(route.File), "api/rpc") {
			continue
		}
		if allowlisted(route.File, ctx.Hints.RateLimit.AllowlistPaths) {
			continue
		}

		src := ctx.source(route.File)
		if route.Protection != nil {
			if route.Protection.RateLimit.Satisfied {
				continue
			}
			if len(route.Protection.RateLimit.UnverifiedWrappers) > 0 {
				continue
			}
			isLoginPath := loginPathnameRe.MatchString(route.Pathname)
			isUploadPath := publicUploadPathRe.MatchString(route.Pathname) && (bodyReadRe.MatchString(src) || putCallRe.MatchString(src))
			if isStronglyEnforced(route.Protection.Auth) && !isLoginPath && !isUploadPath {
				continue
			}
		}
		if cronKeyAuthRe.MatchString(src) {
			continue
		}

		severity, confidence := rateLimitBaseline(route)
		var tags []string

		if loginPathnameRe.MatchString(route.Pathname) {
			severity, confidence = model.SeverityCritical, model.ConfidenceHigh
		}
		if publicUploadPathRe.MatchString(route.Pathname) && (bodyReadRe.MatchString(src) || putCallRe.MatchString(src)) {
			severity, confidence = model.SeverityCritical, model.ConfidenceHigh
		}

		if route.PublicIntent != nil {
			severity = bumpSeverityFloor(severity, model.SeverityHigh)
			if hasOutboundFetchWithRequestInfluencedURL(src) {
				severity, confidence = model.SeverityCritical, model.ConfidenceHigh
				tags = append(tags, "ssrf-surface", "outbound-fetch")
			}
		}

		findings = append(findings, finding.Finding{
			RuleID:           model.RuleRateLimitMissing,
			Severity:         clampSeverity(severity, cap),
			Confidence:       confidence,
			Message:          "API route handler has no rate limiting",
			File:             route.File,
			Line:             firstMatchLine(src, mutationLocatorPatterns),
			ConfidenceReason: "no direct call, hint wrapper, or middleware coverage established rate limiting",
			Remediation: []string{
				"Wrap the handler with a rate-limit middleware or call a rate-limiter before the mutation.",
			},
			Tags: tags,
		})
	}

	for _, proc := range ctx.Procedures {
		if proc.ProcedureKind != model.ProcedureKindMutation {
			continue
		}
		src := ctx.source(proc.File)
		if hasRateLimitCall(src, ctx.Hints.RateLimit.Wrappers) {
			continue
		}
		severity := model.SeverityMedium
		if proc.ProcedureType == model.ProcedureTypeProtected {
			severity = model.SeverityHigh
		}
		findings = append(findings, finding.Finding{
			RuleID:           model.RuleRateLimitMissing,
			Severity:         clampSeverity(severity, cap),
			Confidence:       model.ConfidenceMedium,
			Message:          "RPC mutation procedure has no rate limiting",
			File:             proc.File,
			Line:             proc.Line,
			ConfidenceReason: "no hint wrapper, known package import, or lexical rate-limit pattern found",
			Remediation:      []string{"Apply rate limiting to this procedure or its router."},
			Tags:             []string{"rpc"},
		})
	}

	return findings
}

func rateLimitBaseline(route *model.RouteHandler) (model.Severity, model.Confidence) {
	switch {
	case route.Signals.MutationEvidence && (route.Signals.DBWrite || route.Signals.PaymentWrite):
		return model.SeverityCritical, model.ConfidenceHigh
	case route.Signals.BodyRead:
		return model.SeverityHigh, model.ConfidenceHigh
	default:
		return model.SeverityMedium, model.ConfidenceMedium
	}
}

// bumpSeverityFloor raises severity to at least floor (never lowers it).
func bumpSeverityFloor(severity, floor model.Severity) model.Severity {
	if model.SeverityRank(severity) < model.SeverityRank(floor) {
		return floor
	}
	return severity
}

var rateLimitMethodRe = regexp.MustCompile(`\bratelimit\.limit\s*\(`)
var rateLimitLexicalGeneralRe = regexp.MustCompile(`\b\w*(?:rateLimit|ratelimit|rate_limit)\w*\s*\(`)
var rateLimitImportSubstringsLocal = []string{"@upstash/ratelimit", "rate-limiter-flexible", "@arcjet/next", "@unkey/ratelimit"}

// hintWrapperCallReCache caches the "name(" call-site regex per hint-configured
// wrapper name, compiled once per distinct name for the life of the process
// rather than on every call (spec §9: "every pattern is a constant; compile
// once per process").
var hintWrapperCallReCache = map[string]*regexp.Regexp{}
var hintWrapperCallReCacheMu sync.Mutex

func hintWrapperCallRe(name string) *regexp.Regexp {
	hintWrapperCallReCacheMu.Lock()
	defer hintWrapperCallReCacheMu.Unlock()

	if re, ok := hintWrapperCallReCache[name]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	hintWrapperCallReCache[name] = re
	return re
}

func hasRateLimitCall(src string, hintWrappers []string) bool {
	for _, name := range hintWrappers {
		if hintWrapperCallRe(name).MatchString(src) {
			return true
		}
	}
	for _, substr := range rateLimitImportSubstringsLocal {
		if strings.Contains(src, substr) {
			return true
		}
	}
	return rateLimitMethodRe.MatchString(src) || rateLimitLexicalGeneralRe.MatchString(src)
}
