// Package tsconfig loads a tsconfig.json-style JSONC file, following its
// extends chain, for use by the module resolver (spec §4.5).
package tsconfig

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is a resolved tsconfig: BaseURL and Paths reflect the effective
// values after walking the extends chain (child overrides parent).
type Config struct {
	BaseURL string
	Paths   map[string][]string
}

type rawConfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
	Extends string `json:"extends"`
}

var stringOrCommentRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|//[^\n]*|(?s:/\*.*?\*/)`)
var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// stripJSONC removes line comments, block comments, and trailing commas so
// the result parses as strict JSON.
func stripJSONC(data []byte) []byte {
	text := stringOrCommentRe.ReplaceAllStringFunc(string(data), func(m string) string {
		if strings.HasPrefix(m, `"`) {
			return m // comment markers inside a string literal ("@/*") are kept
		}
		return ""
	})
	text = trailingCommaRe.ReplaceAllString(text, "$1")
	return []byte(text)
}

// Load reads and resolves the tsconfig.json at path, following its extends
// chain (relative or package-scoped). Cycle-safe: a path visited twice in
// one chain stops recursion instead of looping. Returns a zero Config
// (BaseURL="", Paths=nil) if the file cannot be read or parsed.
func Load(path string, readFile func(string) ([]byte, error)) Config {
	return loadChain(path, readFile, map[string]bool{})
}

func loadChain(path string, readFile func(string) ([]byte, error), visited map[string]bool) Config {
	abs := filepath.Clean(path)
	if visited[abs] {
		return Config{}
	}
	visited[abs] = true

	data, err := readFile(abs)
	if err != nil {
		return Config{}
	}

	var raw rawConfig
	if err := json.Unmarshal(stripJSONC(data), &raw); err != nil {
		return Config{}
	}

	result := Config{}
	if raw.Extends != "" {
		parentPath := resolveExtendsPath(abs, raw.Extends)
		result = loadChain(parentPath, readFile, visited)
	}

	if raw.CompilerOptions.BaseURL != "" {
		result.BaseURL = filepath.Join(filepath.Dir(abs), raw.CompilerOptions.BaseURL)
	}
	if len(raw.CompilerOptions.Paths) > 0 {
		result.Paths = raw.CompilerOptions.Paths
	}

	return result
}

// resolveExtendsPath resolves an extends value relative to the file that
// declared it. Relative specifiers ("./base.json", "../tsconfig.base.json")
// resolve against the declaring file's directory; package-scoped specifiers
// ("@acme/tsconfig/base.json") resolve under node_modules.
func resolveExtendsPath(declaringFile, extends string) string {
	dir := filepath.Dir(declaringFile)
	if strings.HasPrefix(extends, ".") {
		p := filepath.Join(dir, extends)
		if !strings.HasSuffix(p, ".json") {
			p += ".json"
		}
		return p
	}
	return filepath.Join(dir, "node_modules", extends)
}
