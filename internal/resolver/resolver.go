// Package resolver maps an import specifier in a source file to a file
// path, and follows barrel re-exports to locate a
// symbol's definition (spec §4.5).
package resolver

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/tsconfig"
)

// probeExtensions is the fixed extension priority list.
var probeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".cts", ".mjs", ".cjs"}

// Resolver maps import specifiers to files using a loaded tsconfig and a
// fixed resolution order.
type Resolver struct {
	Root    string
	TS      tsconfig.Config
	statFn  func(string) (os.FileInfo, error)
}

// New returns a Resolver rooted at root with the given tsconfig.
func New(root string, ts tsconfig.Config) *Resolver {
	return &Resolver{Root: root, TS: ts, statFn: os.Stat}
}

// Resolve maps specifier s, imported from file f, to a file path built on
// f's directory, the resolver root, or BaseURL (absolute when those are),
// following the resolution order of spec §4.5. Returns "" if s
// cannot be resolved (e.g. a bare package specifier).
func (r *Resolver) Resolve(s, f string) string {
	if strings.HasPrefix(s, ".") {
		candidate := filepath.Join(filepath.Dir(f), s)
		return r.probe(candidate)
	}

	if len(r.TS.Paths) > 0 {
		if resolved := r.resolveViaPaths(s); resolved != "" {
			return resolved
		}
	}

	if strings.HasPrefix(s, "@/") || strings.HasPrefix(s, "~/") {
		candidate := filepath.Join(r.Root, "src", s[2:])
		if resolved := r.probe(candidate); resolved != "" {
			return resolved
		}
		// Fall back to project root when no src/ directory is used.
		candidate = filepath.Join(r.Root, s[2:])
		return r.probe(candidate)
	}

	if r.TS.BaseURL != "" {
		candidate := filepath.Join(r.TS.BaseURL, s)
		return r.probe(candidate)
	}

	return ""
}

// resolveViaPaths matches s against the tsconfig paths map, patterns with
// at most one "*", substituting into each target and probing under BaseURL
// (or the resolver root when BaseURL is unset).
func (r *Resolver) resolveViaPaths(s string) string {
	base := r.TS.BaseURL
	if base == "" {
		base = r.Root
	}

	for pattern, targets := range r.TS.Paths {
		match, ok := matchPathPattern(pattern, s)
		if !ok {
			continue
		}
		for _, target := range targets {
			substituted := strings.Replace(target, "*", match, 1)
			candidate := filepath.Join(base, substituted)
			if resolved := r.probe(candidate); resolved != "" {
				return resolved
			}
		}
	}
	return ""
}

// matchPathPattern matches a tsconfig paths pattern (with at most one "*")
// against specifier s, returning the wildcard capture.
func matchPathPattern(pattern, s string) (string, bool) {
	star := strings.Index(pattern, "*")
	if star < 0 {
		if pattern == s {
			return "", true
		}
		return "", false
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return "", false
	}
	if len(s) < len(prefix)+len(suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}

// probe resolves candidate p to a concrete file: if p exists and is a file
// (not a .d.ts), return it; else try each extension in priority order;
// else try p/index<ext> for each extension.
func (r *Resolver) probe(p string) string {
	if info, err := r.statFn(p); err == nil && !info.IsDir() {
		if !strings.HasSuffix(p, ".d.ts") {
			return p
		}
	}
	for _, ext := range probeExtensions {
		candidate := p + ext
		if info, err := r.statFn(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	for _, ext := range probeExtensions {
		candidate := filepath.Join(p, "index"+ext)
		if info, err := r.statFn(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

var reExportSymbolsRe = regexp.MustCompile(`export\s*\{([^}]*)\}\s*from\s*["']([^"']+)["']`)
var reExportStarRe = regexp.MustCompile(`export\s*\*\s*from\s*["']([^"']+)["']`)
var localFunctionRe = func(symbol string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^export\s+(?:default\s+)?(?:async\s+)?function\s+` + regexp.QuoteMeta(symbol) + `\s*\(|^export\s+(?:const|let|var)\s+` + regexp.QuoteMeta(symbol) + `\s*=`)
}

const maxReExportHops = 5

// FollowReExport locates symbol's definition starting from startFile,
// following named and wildcard barrel re-exports up to maxHops (spec
// §4.5). Returns the starting file if resolution cannot make progress
// (fails safely).
func (r *Resolver) FollowReExport(symbol, startFile string) string {
	visited := map[string]bool{}
	return r.followReExport(symbol, startFile, startFile, maxReExportHops, visited)
}

func (r *Resolver) followReExport(symbol, currentFile, originalFile string, hopsLeft int, visited map[string]bool) string {
	if visited[currentFile] {
		return originalFile
	}
	visited[currentFile] = true

	data, err := os.ReadFile(currentFile)
	if err != nil {
		return originalFile
	}
	src := string(data)

	if localFunctionRe(symbol).MatchString(src) {
		return currentFile
	}

	if hopsLeft <= 0 {
		return originalFile
	}

	for _, m := range reExportSymbolsRe.FindAllStringSubmatch(src, -1) {
		names := strings.Split(m[1], ",")
		for _, n := range names {
			n = strings.TrimSpace(n)
			// Handle "foo as bar" aliasing: match against the exported name.
			parts := strings.Fields(n)
			exported := parts[0]
			if len(parts) == 3 && parts[1] == "as" {
				exported = parts[2]
			}
			if exported == symbol {
				next := r.Resolve(m[2], currentFile)
				if next == "" {
					return originalFile
				}
				return r.followReExport(symbol, next, originalFile, hopsLeft-1, visited)
			}
		}
	}

	for _, m := range reExportStarRe.FindAllStringSubmatch(src, -1) {
		next := r.Resolve(m[1], currentFile)
		if next == "" {
			continue
		}
		if found := r.followReExport(symbol, next, originalFile, hopsLeft-1, visited); found != originalFile {
			return found
		}
	}

	return originalFile
}
