// Package protection computes the per-route auth and rate-limit protection
// summary from direct calls, wrapper evidence, and middleware coverage
// (spec §4.7).
package protection

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/routewarden/routewarden/internal/middleware"
	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/wrapper"
)

var rateLimitImportSubstrings = []string{
	"@upstash/ratelimit", "rate-limiter-flexible", "@arcjet/next", "@unkey/ratelimit",
}

var rateLimitMethodCallRe = regexp.MustCompile(`\bratelimit\.limit\s*\(`)
var rateLimitLexicalRe = regexp.MustCompile(`\b\w*(?:rateLimit|ratelimit|rate_limit)\w*\s*\(`)

// Compute fills route.Protection exactly once (spec §4.7), given the route's
// already-read source, the merged hints, the project's wrapper arena, and
// the middleware analysis.
func Compute(route *model.RouteHandler, src string, hints model.Hints, wrapperIndex map[string]*model.WrapperAnalysis, mw middleware.Analysis) {
	summary := model.ProtectionSummary{}
	chains := wrapper.ExtractChains(src)

	computeAuth(&summary.Auth, route, src, chains, hints, wrapperIndex, mw)
	computeRateLimit(&summary.RateLimit, route, src, chains, hints, wrapperIndex, mw)

	route.Protection = &summary
}

func computeAuth(status *model.ProtectionStatus, route *model.RouteHandler, src string, chains []wrapper.Chain, hints model.Hints, wrapperIndex map[string]*model.WrapperAnalysis, mw middleware.Analysis) {
	for _, name := range hints.Auth.Functions {
		if nameCallRe(name).MatchString(src) {
			status.Satisfy(model.SourceDirect, true, "calls "+name+"() directly")
			return
		}
	}

	hintSet := toSet(hints.Auth.Functions)
	for _, chain := range chains {
		for _, name := range chain.Wrappers {
			if hintSet[name] {
				status.Satisfy(model.SourceHint, true, "wrapped by hint-listed auth function "+name)
				return
			}
		}
	}

	if scanWrapperChains(status, chains, wrapperIndex, true) {
		return
	}

	if mw.Found && mw.AuthLikely && mw.CoversPathname(route.Pathname) {
		status.Satisfy(model.SourceMiddleware, true, "covered by middleware at "+mw.File)
	}
}

func computeRateLimit(status *model.ProtectionStatus, route *model.RouteHandler, src string, chains []wrapper.Chain, hints model.Hints, wrapperIndex map[string]*model.WrapperAnalysis, mw middleware.Analysis) {
	for _, name := range hints.RateLimit.Wrappers {
		if nameCallRe(name).MatchString(src) {
			status.Satisfy(model.SourceDirect, true, "calls "+name+"() directly")
			return
		}
	}
	for _, substr := range rateLimitImportSubstrings {
		if strings.Contains(src, substr) {
			status.Satisfy(model.SourceDirect, true, "imports "+substr)
			return
		}
	}
	if rateLimitMethodCallRe.MatchString(src) {
		status.Satisfy(model.SourceDirect, true, "calls ratelimit.limit()")
		return
	}
	if rateLimitLexicalRe.MatchString(src) {
		status.Satisfy(model.SourceDirect, true, "matches general rate-limit lexical pattern")
		return
	}

	hintSet := toSet(hints.RateLimit.Wrappers)
	for _, chain := range chains {
		for _, name := range chain.Wrappers {
			if hintSet[name] {
				status.Satisfy(model.SourceHint, true, "wrapped by hint-listed rate-limit wrapper "+name)
				return
			}
		}
	}

	if scanWrapperChains(status, chains, wrapperIndex, false) {
		return
	}

	if mw.Found && mw.RateLimitLikely && mw.CoversPathname(route.Pathname) {
		status.Satisfy(model.SourceMiddleware, true, "covered by middleware at "+mw.File)
	}
}

// scanWrapperChains implements step 3 of the fallback chain: the first
// resolved-and-enforced wrapper wins outright; every other wrapper that
// fails to establish the facet is recorded as unverified. Returns true if
// the facet was satisfied.
func scanWrapperChains(status *model.ProtectionStatus, chains []wrapper.Chain, index map[string]*model.WrapperAnalysis, auth bool) bool {
	for _, chain := range chains {
		for _, name := range chain.Wrappers {
			wa, ok := index[name]
			if !ok {
				status.AddUnverifiedWrapper(name, "wrapper not indexed")
				continue
			}
			if !wa.Resolved {
				status.AddUnverifiedWrapper(name, "could not resolve wrapper definition")
				continue
			}
			callPresent, enforced := wa.Evidence.AuthCallPresent, wa.Evidence.AuthEnforced
			if !auth {
				callPresent, enforced = wa.Evidence.RateLimitCallPresent, wa.Evidence.RateLimitEnforced
			}
			if enforced {
				status.Satisfy(model.SourceWrapper, true, fmt.Sprintf("wrapper %s enforces on failure", name))
				return true
			}
			if callPresent {
				status.AddUnverifiedWrapper(name, "calls but does not prove enforcement")
			} else {
				status.AddUnverifiedWrapper(name, "resolved with no relevant evidence")
			}
		}
	}
	return false
}

// nameCallReCache caches the "name(" call-site regex per hint-configured
// function name, compiled once per distinct name for the life of the
// process rather than on every call (spec §9: "every pattern is a
// constant; compile once per process").
var nameCallReCache = map[string]*regexp.Regexp{}
var nameCallReCacheMu sync.Mutex

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

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
