package scan

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/routewarden/routewarden/internal/model"
)

var defaultIncludePatterns = []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx"}

var ignoredIncludeDirs = map[string]bool{
	"node_modules": true, ".git": true, ".next": true, "dist": true,
	"build": true, "coverage": true, ".protoscan": true,
}

// resolveIncludeFiles walks root for the files TENANCY-SCOPE-MISSING scans
// (spec §4.8's "configured include paths"), honoring cfg.Include/Exclude
// glob patterns when set and falling back to every recognized source file
// otherwise. Matched files are loaded into sources if not already present.
func resolveIncludeFiles(root string, cfg model.Config, sources map[string]string) []string {
	includePatterns := cfg.Include
	if len(includePatterns) == 0 {
		includePatterns = defaultIncludePatterns
	}

	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != root && ignoredIncludeDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !matchesAnyGlob(rel, includePatterns) || matchesAnyGlob(rel, cfg.Exclude) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	for _, f := range files {
		if _, ok := sources[f]; ok {
			continue
		}
		if data, err := os.ReadFile(f); err == nil {
			sources[f] = string(data)
		}
	}
	return files
}

var globRegexCache = map[string]*regexp.Regexp{}
var globRegexCacheMu sync.Mutex

func matchesAnyGlob(path string, patterns []string) bool {
	for _, p := range patterns {
		if globToRegex(p).MatchString(path) {
			return true
		}
	}
	return false
}

// globToRegex compiles a "**"/"*"/"?" glob pattern into an anchored regex,
// caching by pattern text since the same small pattern set is matched
// against every file in the tree.
func globToRegex(pattern string) *regexp.Regexp {
	globRegexCacheMu.Lock()
	defer globRegexCacheMu.Unlock()

	if re, ok := globRegexCache[pattern]; ok {
		return re
	}

	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				sb.WriteString(".*")
				i++
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString(".")
		case '.', '+', '(', ')', '|', '^', '$', '[', ']', '{', '}', '\\':
			sb.WriteString("\\")
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteString("$")

	re := regexp.MustCompile(sb.String())
	globRegexCache[pattern] = re
	return re
}
