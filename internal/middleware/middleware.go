// Package middleware reads the optional middleware file (local, then
// workspace-root fallback), detects auth/rate-limit intent by textual
// heuristic, and extracts route matcher patterns (spec §4.3). Conservative
// by design: no execution, no parsing.
package middleware

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/project"
)

// candidateBases are the directories a middleware file may live in,
// tried in order.
var candidateBases = []string{".", "src"}

// candidateExtensions are the extensions tried for each base, primary
// extension first.
var candidateExtensions = []string{".ts", ".tsx", ".js", ".mjs"}

// authFunctionPatterns is the closed set of auth-function call patterns
// that mark a middleware file authLikely.
var authFunctionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bauth\s*\(`),
	regexp.MustCompile(`\bgetSession\s*\(`),
	regexp.MustCompile(`\bgetServerSession\s*\(`),
	regexp.MustCompile(`\bverifyToken\s*\(`),
	regexp.MustCompile(`\bcurrentUser\s*\(`),
	regexp.MustCompile(`\brequireAuth\s*\(`),
}

var rateLimitSubstringRe = regexp.MustCompile(`(?i)ratelimit|rate-limit|upstash`)

var matcherBlockRe = regexp.MustCompile(`matcher\s*:\s*\[([^\]]*)\]`)
var quotedLiteralRe = regexp.MustCompile(`["']([^"']*)["']`)

// Analysis is the middleware analyzer's output for one project.
type Analysis struct {
	Found           bool
	File            string
	AuthLikely      bool
	RateLimitLikely bool
	Matchers        []string
}

// Analyze locates and analyzes the middleware file for root, falling back
// to the workspace root's middleware file when none is found locally.
func Analyze(root string) Analysis {
	if path, content := findMiddleware(root); path != "" {
		return analyzeContent(path, content)
	}

	if wsRoot := project.FindWorkspaceRoot(filepath.Dir(root)); wsRoot != "" && wsRoot != root {
		if path, content := findMiddleware(wsRoot); path != "" {
			return analyzeContent(path, content)
		}
	}

	return Analysis{}
}

// findMiddleware returns the first existing candidate path under root and
// its contents, or ("", nil) if none exist.
func findMiddleware(root string) (string, []byte) {
	for _, base := range candidateBases {
		for _, ext := range candidateExtensions {
			candidate := filepath.Join(root, base, "middleware"+ext)
			if data, err := os.ReadFile(candidate); err == nil {
				return candidate, data
			}
		}
	}
	return "", nil
}

func analyzeContent(path string, content []byte) Analysis {
	text := string(content)

	analysis := Analysis{Found: true, File: path}

	for _, re := range authFunctionPatterns {
		if re.MatchString(text) {
			analysis.AuthLikely = true
			break
		}
	}

	analysis.RateLimitLikely = rateLimitSubstringRe.MatchString(text)

	if m := matcherBlockRe.FindStringSubmatch(text); m != nil {
		for _, lit := range quotedLiteralRe.FindAllStringSubmatch(m[1], -1) {
			if strings.TrimSpace(lit[1]) != "" {
				analysis.Matchers = append(analysis.Matchers, lit[1])
			}
		}
	}

	return analysis
}

// CoversPathname reports whether pathname is covered by the middleware's
// matchers, per spec §4.7: suffix /:path* is a prefix match on the literal
// prefix; (.*) suffix behaves the same; otherwise exact or
// prefix-with-trailing-slash match. No matchers means "all" is covered.
func (a Analysis) CoversPathname(pathname string) bool {
	if len(a.Matchers) == 0 {
		return true
	}
	for _, m := range a.Matchers {
		if matcherCovers(m, pathname) {
			return true
		}
	}
	return false
}

func matcherCovers(matcher, pathname string) bool {
	switch {
	case strings.HasSuffix(matcher, "/:path*"):
		prefix := strings.TrimSuffix(matcher, "/:path*")
		return strings.HasPrefix(pathname, prefix)
	case strings.HasSuffix(matcher, "(.*)"):
		prefix := strings.TrimSuffix(matcher, "(.*)")
		return strings.HasPrefix(pathname, prefix)
	default:
		return pathname == matcher || strings.HasPrefix(pathname, matcher+"/")
	}
}
