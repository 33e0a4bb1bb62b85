// Package endpoint discovers route handlers and server actions under a
// project's application directory and computes their mutation signals and
// public-intent directives (spec §4.4).
package endpoint

import (
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/model"
)

// ormWriteMethods is the fixed catalog of ORM-write method names matched
// as "<caller>.<method>(".
var ormWriteMethods = []string{
	"create", "createMany", "update", "updateMany", "upsert",
	"delete", "deleteMany", "insert", "insertMany",
}

// nonDBCallers excludes identifiers that commonly precede a write-method
// name but aren't database callers: crypto objects, response/header
// objects, state objects, collection objects, DOM objects, router/
// framework objects.
var nonDBCallers = map[string]bool{
	"response": true, "res": true, "headers": true, "header": true,
	"cookies": true, "cookie": true, "searchparams": true, "params": true,
	"formdata": true, "map": true, "set": true, "array": true, "object": true,
	"promise": true, "crypto": true, "subtle": true, "hash": true, "hmac": true,
	"cipher": true, "decipher": true, "url": true, "urlsearchparams": true,
	"router": true, "navigation": true, "history": true, "window": true,
	"document": true, "localstorage": true, "sessionstorage": true,
	"console": true, "json": true, "date": true, "number": true, "string": true,
	"array.prototype": true, "math": true, "buffer": true, "stream": true,
	"eventemitter": true, "logger": true, "log": true, "state": true,
	"store": true, "cache": true, "queue": true,
}

var ormWriteCallRe = regexp.MustCompile(`\b([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\.(` + strings.Join(ormWriteMethods, "|") + `)\s*\(`)

// paymentWritePatterns matches writes to payment-provider resources:
// "<payments>.<resource>.create(" for the two recognized providers.
var paymentWritePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bstripe\.\w+\.create\s*\(`),
	regexp.MustCompile(`\bpaypal\.\w+\.create\s*\(`),
}

var rawSQLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$executeRaw\b`),
	regexp.MustCompile(`(?i)\bquery\s*\(\s*["'\x60]\s*(insert|update|delete)\b`),
}

var bodyReadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(request|req)\.(json|formData)\s*\(`),
	regexp.MustCompile(`\b(request|req)\.body\b`),
}

// outboundFetchPatterns identify an outbound network call, used by the
// SSRF-escalation heuristic in RATE-LIMIT-MISSING and INPUT-VALIDATION-MISSING.
var outboundFetchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|[^\w.])fetch\s*\(`),
	regexp.MustCompile(`\baxios(?:\.\w+)?\s*\(`),
	regexp.MustCompile(`\bgot[.(]`),
	regexp.MustCompile(`\bundici\.request\s*\(`),
	regexp.MustCompile(`\bhttps?\.(get|request)\s*\(`),
}

// requestInfluencedURLPatterns identify request-derived data feeding an
// outbound call's destination.
var requestInfluencedURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`searchParams\.get\s*\(`),
	regexp.MustCompile(`new URL\s*\(\s*req\.url`),
	regexp.MustCompile(`\breq\.url\b`),
	regexp.MustCompile(`\b(request|req)\.(json|formData)\s*\(`),
	regexp.MustCompile(`\breq\.query\b`),
	regexp.MustCompile(`\bparams\.\w+`),
}

// ScanMutationSignals is the exported entry point used by sub-packages
// (internal/endpoint/rpc) that need the same pattern catalog over gathered
// procedure body text.
func ScanMutationSignals(src string, includeBodyRead bool) model.MutationSignals {
	return scanMutationSignals(src, includeBodyRead)
}

// scanMutationSignals evaluates the fixed pattern catalog over source text
// and returns the resulting signals, with or without body-read detection
// (server actions omit body-read per spec §4.4).
func scanMutationSignals(src string, includeBodyRead bool) model.MutationSignals {
	var s model.MutationSignals

	for _, m := range ormWriteCallRe.FindAllStringSubmatch(src, -1) {
		caller := strings.ToLower(lastSegment(m[1]))
		if nonDBCallers[caller] {
			continue
		}
		s.MarkDBWrite("writes via " + m[1] + "." + m[2] + "()")
	}

	for _, re := range paymentWritePatterns {
		if re.MatchString(src) {
			s.MarkPaymentWrite("payment provider write")
		}
	}

	for _, re := range rawSQLPatterns {
		if re.MatchString(src) {
			s.MarkDBWrite("raw SQL write")
		}
	}

	if includeBodyRead {
		for _, re := range bodyReadPatterns {
			if re.MatchString(src) {
				s.MarkBodyRead("reads request body")
			}
		}
	}

	return s
}

func lastSegment(dotted string) string {
	parts := strings.Split(dotted, ".")
	return parts[len(parts)-1]
}

// hasOutboundFetchWithRequestInfluencedURL reports whether src contains an
// outbound fetch whose destination is influenced by request data — the
// SSRF-surface heuristic shared by RATE-LIMIT-MISSING and
// INPUT-VALIDATION-MISSING.
func hasOutboundFetchWithRequestInfluencedURL(src string) bool {
	hasFetch := false
	for _, re := range outboundFetchPatterns {
		if re.MatchString(src) {
			hasFetch = true
			break
		}
	}
	if !hasFetch {
		return false
	}
	for _, re := range requestInfluencedURLPatterns {
		if re.MatchString(src) {
			return true
		}
	}
	return false
}
