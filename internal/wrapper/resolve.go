package wrapper

import (
	"os"
	"regexp"

	"github.com/routewarden/routewarden/internal/resolver"
)

// namedImportRe matches "import { a, b as c } from '...'".
var namedImportRe = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s*["']([^"']+)["']`)

// defaultImportRe matches "import name from '...'".
var defaultImportRe = regexp.MustCompile(`import\s+([A-Za-z_$][\w$]*)\s+from\s*["']([^"']+)["']`)

var localDefinitionRe = func(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s+` + regexp.QuoteMeta(name) + `\s*\(|^(?:export\s+)?(?:const|let|var)\s+` + regexp.QuoteMeta(name) + `\s*=`)
}

// Resolve locates wrapper name's definition file starting from routeFile,
// per spec §4.6 Phase B. Returns ("", false) when no definition file can
// be found (resolved=false).
func Resolve(name, routeFile string, r *resolver.Resolver) (string, bool) {
	data, err := os.ReadFile(routeFile)
	if err != nil {
		return "", false
	}
	src := string(data)

	specifier, alias := findImportSpecifier(src, name)
	if specifier == "" {
		if localDefinitionRe(name).MatchString(src) {
			return routeFile, true
		}
		return "", false
	}

	target := r.Resolve(specifier, routeFile)
	if target == "" {
		return "", false
	}

	symbol := name
	if alias != "" {
		symbol = alias
	}
	definitionFile := r.FollowReExport(symbol, target)
	if definitionFile == "" {
		return "", false
	}
	return definitionFile, true
}

// findImportSpecifier returns the module specifier that imports name, and
// the original exported symbol name if name was imported under an alias
// ("foo as name" -> alias="foo").
func findImportSpecifier(src, name string) (specifier, alias string) {
	for _, m := range namedImportRe.FindAllStringSubmatch(src, -1) {
		for _, raw := range splitImportClause(m[1]) {
			local, original := parseImportBinding(raw)
			if local == name {
				if original != local {
					return m[2], original
				}
				return m[2], ""
			}
		}
	}
	for _, m := range defaultImportRe.FindAllStringSubmatch(src, -1) {
		if m[1] == name {
			return m[2], "default"
		}
	}
	return "", ""
}

func splitImportClause(clause string) []string {
	var out []string
	for _, part := range regexp.MustCompile(`,`).Split(clause, -1) {
		trimmed := trimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseImportBinding splits "foo as bar" into (local="bar", original="foo")
// or, for a plain binding "foo", returns (local="foo", original="foo").
func parseImportBinding(raw string) (local, original string) {
	fields := regexp.MustCompile(`\s+`).Split(trimSpace(raw), -1)
	if len(fields) == 3 && fields[1] == "as" {
		return fields[2], fields[0]
	}
	return fields[0], fields[0]
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
