package endpoint

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/model"
)

const serverDirectiveMarker = `"use server"`

var exportedFunctionRe = regexp.MustCompile(`(?m)^export\s+(?:default\s+)?(?:async\s+)?function\s+([A-Za-z_$][\w$]*)\s*\(`)
var exportedConstFuncRe = regexp.MustCompile(`(?m)^export\s+(?:default\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?\(`)

// DiscoverServerActions walks appDir (and a secondary "src" search rooted
// at appDir's sibling) for files containing a server-directive marker and
// builds a ServerAction per marked export, per spec §4.4.
func DiscoverServerActions(appDir string) ([]*model.ServerAction, []SkippedFile) {
	var actions []*model.ServerAction
	var skipped []SkippedFile

	roots := []string{appDir}
	if secondary := filepath.Join(filepath.Dir(appDir), "src"); secondary != appDir {
		if info, err := os.Stat(secondary); err == nil && info.IsDir() {
			roots = append(roots, secondary)
		}
	}

	seen := map[string]bool{}
	for _, root := range roots {
		if seen[root] {
			continue
		}
		seen[root] = true

		walkSourceTree(root, func(path string) bool { return true }, func(path string) {
			data, err := os.ReadFile(path)
			if err != nil {
				skipped = append(skipped, SkippedFile{File: path, Reason: err.Error()})
				return
			}
			src := string(data)
			if !strings.Contains(src, serverDirectiveMarker) {
				return
			}
			actions = append(actions, buildServerActions(path, src)...)
		})
	}

	return actions, skipped
}

func buildServerActions(path, src string) []*model.ServerAction {
	lines := strings.Split(src, "\n")

	fileLevel := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		fileLevel = strings.Contains(trimmed, serverDirectiveMarker)
		break
	}

	signals := scanMutationSignals(src, false)

	exports := collectExportedNames(src)

	if fileLevel {
		if len(exports) == 0 {
			return []*model.ServerAction{{File: path, Signals: signals}}
		}
		actions := make([]*model.ServerAction, 0, len(exports))
		for _, name := range exports {
			actions = append(actions, &model.ServerAction{File: path, Name: name, Signals: signals})
		}
		return actions
	}

	// Inline directive: only functions whose body contains the marker.
	var actions []*model.ServerAction
	for _, name := range exports {
		body := functionBody(src, name)
		if strings.Contains(body, serverDirectiveMarker) {
			actions = append(actions, &model.ServerAction{
				File:    path,
				Name:    name,
				Signals: scanMutationSignals(body, false),
			})
		}
	}
	return actions
}

func collectExportedNames(src string) []string {
	var names []string
	for _, m := range exportedFunctionRe.FindAllStringSubmatch(src, -1) {
		names = appendUniqueStr(names, m[1])
	}
	for _, m := range exportedConstFuncRe.FindAllStringSubmatch(src, -1) {
		names = appendUniqueStr(names, m[1])
	}
	return names
}

// functionBody returns the brace-delimited body text following the first
// occurrence of name in src, a best-effort textual isolation (spec §9:
// "a minimal hand-written tokenizer suffices").
func functionBody(src, name string) string {
	idx := strings.Index(src, name)
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
