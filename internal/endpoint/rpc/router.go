package rpc

import (
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/resolver"
)

var namedImportRe = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s*["']([^"']+)["']`)
var defaultImportRe = regexp.MustCompile(`import\s+([A-Za-z_$][\w$]*)\s+from\s*["']([^"']+)["']`)
var routerPropertyRe = regexp.MustCompile(`router\s*:\s*([A-Za-z_$][\w$]*)`)
var routerLikeNameRe = regexp.MustCompile(`(?i)router`)

// resolveRootRouterFile finds the identifier bound to the typed-RPC root
// router in the proxy route's source (named, aliased, default import, or
// bound via a "router:" property), then resolves it to a file, following
// barrel re-exports through the resolver if the binding isn't a local definition
// (spec §4.4: "resolve the exported root router via an import pattern").
func resolveRootRouterFile(src, proxyFile string, r *resolver.Resolver) string {
	identifier := rootRouterIdentifier(src)
	if identifier == "" {
		return ""
	}
	return resolveIdentifierFile(src, identifier, proxyFile, r)
}

// resolveSubRouterFile resolves a sub-router reference identifier found
// in a router-entry value, one hop only.
func resolveSubRouterFile(src, identifier, fromFile string, r *resolver.Resolver) string {
	return resolveIdentifierFile(src, identifier, fromFile, r)
}

func rootRouterIdentifier(src string) string {
	if m := routerPropertyRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}

	var candidates []string
	for _, m := range namedImportRe.FindAllStringSubmatch(src, -1) {
		for _, raw := range splitClause(m[1]) {
			local, _ := parseBinding(raw)
			candidates = append(candidates, local)
		}
	}
	for _, m := range defaultImportRe.FindAllStringSubmatch(src, -1) {
		candidates = append(candidates, m[1])
	}

	if len(candidates) == 0 {
		return ""
	}
	for _, c := range candidates {
		if routerLikeNameRe.MatchString(c) {
			return c
		}
	}
	return candidates[0]
}

// resolveIdentifierFile resolves identifier's definition file: a local
// export in src itself, or an imported specifier followed through the
// resolver (including barrel re-exports).
func resolveIdentifierFile(src, identifier, fromFile string, r *resolver.Resolver) string {
	if localExportRe(identifier).MatchString(src) {
		return fromFile
	}

	specifier, alias := findImportSpecifier(src, identifier)
	if specifier == "" {
		return ""
	}
	target := r.Resolve(specifier, fromFile)
	if target == "" {
		return ""
	}
	symbol := identifier
	if alias != "" {
		symbol = alias
	}
	return r.FollowReExport(symbol, target)
}

func localExportRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^export\s+(?:default\s+)?(?:async\s+)?function\s+` + regexp.QuoteMeta(name) + `\s*\(|^(?:export\s+)?(?:const|let|var)\s+` + regexp.QuoteMeta(name) + `\s*=`)
}

func findImportSpecifier(src, name string) (specifier, alias string) {
	for _, m := range namedImportRe.FindAllStringSubmatch(src, -1) {
		for _, raw := range splitClause(m[1]) {
			local, original := parseBinding(raw)
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

func splitClause(clause string) []string {
	var out []string
	for _, part := range strings.Split(clause, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBinding(raw string) (local, original string) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 3 && fields[1] == "as" {
		return fields[2], fields[0]
	}
	return fields[0], fields[0]
}
