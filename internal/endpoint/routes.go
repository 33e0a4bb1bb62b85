package endpoint

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/model"
)

// httpMethodExportRe matches a top-level exported HTTP method declaration,
// e.g. "export async function GET(" or "export const POST =".
var httpMethodExportRe = regexp.MustCompile(`(?m)^export\s+(?:async\s+function|const|let|var|function)\s+(GET|POST|PUT|PATCH|DELETE)\b`)

// publicIntentRe matches the public-intent directive's single-line comment
// form, with either double or single quotes around the reason.
var publicIntentRe = regexp.MustCompile(`^\s*//\s*\S+:public-intent(?:\s+reason=(?:"([^"]*)"|'([^']*)'))?\s*$`)

// DiscoverRoutes walks appDir for route.{ext} files and builds a
// RouteHandler for each, per spec §4.4.
func DiscoverRoutes(appDir string) ([]*model.RouteHandler, []SkippedFile) {
	var routes []*model.RouteHandler
	var skipped []SkippedFile

	walkSourceTree(appDir, func(path string) bool {
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		return base == "route" && isRecognizedExtension(ext)
	}, func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, SkippedFile{File: path, Reason: err.Error()})
			return
		}
		routes = append(routes, buildRouteHandler(appDir, path, string(data)))
	})

	return routes, skipped
}

func buildRouteHandler(appDir, path, src string) *model.RouteHandler {
	route := &model.RouteHandler{File: path}

	for _, m := range httpMethodExportRe.FindAllStringSubmatch(src, -1) {
		route.Methods = appendUniqueStr(route.Methods, m[1])
	}

	route.Pathname = pathnameFor(appDir, path)
	route.IsAPI = strings.HasPrefix(route.Pathname, "/api")

	route.Signals = scanMutationSignals(src, true)

	if intent, malformed := parsePublicIntent(src); intent != nil {
		route.PublicIntent = intent
	} else if malformed != nil {
		route.MalformedPublicIntent = malformed
	}

	return route
}

// pathnameFor computes the URL pathname by stripping the app-dir prefix
// and the trailing /route.* suffix.
func pathnameFor(appDir, path string) string {
	rel, err := filepath.Rel(appDir, filepath.Dir(path))
	if err != nil {
		return "/"
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "/"
	}
	return "/" + rel
}

// parsePublicIntent scans the file line by line for the public-intent
// directive; the first line containing ":public-intent" decides the result,
// whether or not it is a comment. A directive with a missing or empty reason
// yields a malformed result instead.
func parsePublicIntent(src string) (*model.PublicIntent, *model.MalformedPublicIntent) {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if !strings.Contains(line, ":public-intent") {
			continue
		}
		m := publicIntentRe.FindStringSubmatch(line)
		if m == nil {
			return nil, &model.MalformedPublicIntent{Line: i + 1, RawText: strings.TrimSpace(line)}
		}
		reason := m[1]
		if reason == "" {
			reason = m[2]
		}
		if strings.TrimSpace(reason) == "" {
			return nil, &model.MalformedPublicIntent{Line: i + 1, RawText: strings.TrimSpace(line)}
		}
		return &model.PublicIntent{Reason: reason, Line: i + 1}, nil
	}
	return nil, nil
}

func appendUniqueStr(base []string, v string) []string {
	for _, b := range base {
		if b == v {
			return base
		}
	}
	return append(base, v)
}
