// Package wrapper resolves and introspects the higher-order-function (HOF)
// wrapper chains that decorate route handler exports, distinguishing "calls
// an auth function" from "enforces auth on failure" (spec §4.6).
package wrapper

import "regexp"

// exportChainRe matches the two export shapes a wrapper chain can start
// from: a named HTTP-method export, or a default export.
var exportChainRe = []*regexp.Regexp{
	regexp.MustCompile(`export\s+(?:const|let|var)\s+(GET|POST|PUT|PATCH|DELETE)\s*=\s*([^\n;]+)`),
	regexp.MustCompile(`export\s+default\s+([^\n;]+)`),
}

// identifierCallRe matches a leading "identifier(" at the start of an
// expression.
var identifierCallRe = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s*\(`)

// reservedIdentifiers is the fixed skip-list of control-flow and
// standard-library names that stop chain extraction.
var reservedIdentifiers = map[string]bool{
	"function": true, "async": true, "await": true, "new": true,
	"Response": true, "NextResponse": true, "Promise": true,
	"JSON": true, "Object": true, "Array": true,
}

// Chain is one route export's ordered HOF chain, outermost wrapper first.
// The innermost handler expression is not recorded.
type Chain struct {
	Export   string // HTTP method name, or "default"
	Wrappers []string
}

// ExtractChains extracts every HOF chain declared in a route file's
// source, per spec §4.6 Phase A.
func ExtractChains(src string) []Chain {
	var chains []Chain

	for _, m := range exportChainRe[0].FindAllStringSubmatch(src, -1) {
		chains = append(chains, Chain{Export: m[1], Wrappers: extractChainWrappers(m[2])})
	}
	for _, m := range exportChainRe[1].FindAllStringSubmatch(src, -1) {
		chains = append(chains, Chain{Export: "default", Wrappers: extractChainWrappers(m[1])})
	}

	return chains
}

// extractChainWrappers walks the leading identifier-call nesting of expr,
// e.g. "withA(withB(handler))" -> ["withA", "withB"], stopping at the
// first non-identifier-call or a reserved identifier.
func extractChainWrappers(expr string) []string {
	var wrappers []string
	remaining := expr

	for {
		m := identifierCallRe.FindStringSubmatchIndex(remaining)
		if m == nil {
			break
		}
		name := remaining[m[2]:m[3]]
		if reservedIdentifiers[name] {
			break
		}
		wrappers = append(wrappers, name)
		remaining = remaining[m[1]:]
	}

	return wrappers
}
