package wrapper

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/routewarden/routewarden/internal/model"
)

// rateLimitImportMarkers are file-level imports that always set
// rateLimitCallPresent, searched against the full source (spec §4.6 Phase C).
var rateLimitImportMarkers = []string{"@upstash/ratelimit", "@arcjet/next", "@unkey/ratelimit"}

// builtinAuthPatterns imply enforcement outright: each sets
// authCallPresent=authEnforced=true.
var builtinAuthPatterns = []struct {
	re     *regexp.Regexp
	detail string
}{
	{regexp.MustCompile(`\b\w+\.auth\.getUser\s*\(`), "verifies session via <db>.auth.getUser()"},
	{regexp.MustCompile(`\b\w+\.auth\.getSession\s*\(`), "verifies session via <db>.auth.getSession()"},
	{regexp.MustCompile(`\b\w+\.webhooks\.constructEvent\s*\(`), "verifies webhook signature via webhooks.constructEvent()"},
	{regexp.MustCompile(`\bclerkClient\.verifyToken\s*\(`), "verifies token via clerkClient.verifyToken()"},
	{regexp.MustCompile(`\bworkos\.webhooks\.verifyHeader\s*\(`), "verifies webhook signature via workos.webhooks.verifyHeader()"},
	{regexp.MustCompile(`\bverifyVercelSignature\s*\(`), "verifies signature via verifyVercelSignature()"},
	{regexp.MustCompile(`\bverifyQstashSignature\s*\(`), "verifies signature via verifyQstashSignature()"},
	{regexp.MustCompile(`\btimingSafeEqual\s*\(`), "constant-time comparison via timingSafeEqual()"},
}

var createHmacRe = regexp.MustCompile(`\bcreateHmac\s*\(`)
var signatureWordRe = regexp.MustCompile(`(?i)signature`)

// authEnforcementPatterns prove a fail-closed auth control-flow branch
// when a bare auth call alone didn't.
var authEnforcementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`if\s*\(\s*!\s*\(?(session|user|token|currentUser|auth)\)?[^)]*\)[^{]{0,80}(throw|return|NextResponse\.redirect|\.json\s*\(|new Response)`),
	regexp.MustCompile(`(session|user|token|auth)\s*(\?\?|\|\|)\s*(throw|null)`),
}

var authCallThenGuardRe = regexp.MustCompile(`\b\w+\s*\([^)]*\)[\s\S]{0,200}if\s*\(\s*!`)

// rateLimitEnforcementPatterns prove a fail-closed rate-limit branch.
var rateLimitEnforcementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`if\s*\(\s*!\s*success\s*\)[\s\S]{0,80}(throw|return|429|"too many")`),
	regexp.MustCompile(`if\s*\(\s*remaining\s*<=?\s*0\s*\)[\s\S]{0,80}(throw|return|429|"too many")`),
	regexp.MustCompile(`\{\s*success\s*\}[\s\S]{0,80}if\s*\(\s*!\s*success`),
}

var rateLimitCallThenGuardRe = regexp.MustCompile(`\.limit\s*\([\s\S]{0,200}(throw|return new Response|429)`)

// AnalyzeBody inspects a wrapper's definition file and returns the
// evidence gathered over the isolated function body (or the full source
// if the symbol's body cannot be located), per spec §4.6 Phase C.
func AnalyzeBody(definitionFile, symbol string, authFunctions, rateLimitWrappers []string) model.WrapperEvidence {
	data, err := os.ReadFile(definitionFile)
	if err != nil {
		return model.WrapperEvidence{}
	}
	fullSource := string(data)
	scope := locateFunctionBody(fullSource, symbol)
	if scope == "" {
		scope = fullSource
	}

	var evidence model.WrapperEvidence

	for _, marker := range rateLimitImportMarkers {
		if strings.Contains(fullSource, marker) {
			evidence.MarkRateLimitCall("imports " + marker)
		}
	}

	for _, name := range authFunctions {
		if nameCallRe(name).MatchString(scope) {
			evidence.MarkAuthCall("calls " + name + "()")
		}
	}

	for _, bp := range builtinAuthPatterns {
		if bp.re.MatchString(scope) {
			evidence.MarkAuthEnforced(bp.detail)
		}
	}
	if createHmacRe.MatchString(scope) && signatureWordRe.MatchString(scope) {
		evidence.MarkAuthEnforced("HMAC signature comparison via createHmac()")
	}

	for _, name := range rateLimitWrappers {
		if nameDotOrCallRe(name).MatchString(scope) {
			evidence.MarkRateLimitCall("calls " + name)
		}
	}

	if !evidence.AuthEnforced {
		for _, re := range authEnforcementPatterns {
			if re.MatchString(scope) {
				evidence.MarkAuthEnforced("fail-closed auth guard")
				break
			}
		}
	}
	if !evidence.AuthEnforced && evidence.AuthCallPresent && authCallThenGuardRe.MatchString(scope) {
		evidence.MarkAuthEnforced("auth call followed by a falsy guard")
	}

	if !evidence.RateLimitEnforced {
		for _, re := range rateLimitEnforcementPatterns {
			if re.MatchString(scope) {
				evidence.MarkRateLimitEnforced("fail-closed rate-limit guard")
				break
			}
		}
	}
	if !evidence.RateLimitEnforced && rateLimitCallThenGuardRe.MatchString(scope) {
		evidence.MarkRateLimitEnforced(".limit() followed by a throw/429 guard")
	}

	return evidence
}

// nameCallReCache and nameDotOrCallReCache cache the hint-configured-name
// regexes below, compiled once per distinct name for the life of the process
// rather than on every AnalyzeBody call (spec §9: "every pattern is a
// constant; compile once per process").
var (
	nameCallReCache      = map[string]*regexp.Regexp{}
	nameCallReCacheMu    sync.Mutex
	nameDotOrCallReCache = map[string]*regexp.Regexp{}
	nameDotOrCallReMu    sync.Mutex
)

func nameCallRe(name string) *regexp.Regexp {
	nameCallReCacheMu.Lock()
	defer nameCallReCacheMu.Unlock()

	if re, ok := nameCallReCache[name]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	nameCallReCache[name] = re
	return re
}

func nameDotOrCallRe(name string) *regexp.Regexp {
	nameDotOrCallReMu.Lock()
	defer nameDotOrCallReMu.Unlock()

	if re, ok := nameDotOrCallReCache[name]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `[.(]`)
	nameDotOrCallReCache[name] = re
	return re
}

// locateFunctionBody isolates symbol's function body via a minimal
// hand-written tokenizer (spec §9) — a direct function declaration, a
// variable initializer that is an arrow/function expression, or an inner
// function passed to a factory call. The span starts at the first "{" after
// the first occurrence of symbol in src, which is not checked to be a
// declaration. Returns "" if symbol does not occur or no "{" follows it.
func locateFunctionBody(src, symbol string) string {
	idx := strings.Index(src, symbol)
	if idx < 0 {
		return ""
	}
	open := strings.Index(src[idx:], "{")
	if open < 0 {
		return ""
	}
	start := idx + open
	depth := 0
	for i := start; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start : i+1]
			}
		}
	}
	return src[start:]
}
