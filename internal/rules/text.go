package rules

import (
	"regexp"
	"strings"
)

var lineCommentRe = regexp.MustCompile(`//[^\n]*`)
var blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)

// stripComments removes line and block comments, preserving line structure
// (newlines inside a stripped block are kept so line numbers stay valid).
func stripComments(src string) string {
	src = blockCommentRe.ReplaceAllStringFunc(src, func(m string) string {
		return strings.Repeat("\n", strings.Count(m, "\n"))
	})
	return lineCommentRe.ReplaceAllString(src, "")
}

// lineOf returns the 1-based line number of byte offset idx in src.
func lineOf(src string, idx int) int {
	if idx < 0 {
		return 0
	}
	return strings.Count(src[:idx], "\n") + 1
}

// firstMatchLine returns the line number of the first match of any pattern
// in patterns, or 0 if none match.
func firstMatchLine(src string, patterns []*regexp.Regexp) int {
	best := -1
	for _, re := range patterns {
		if loc := re.FindStringIndex(src); loc != nil {
			if best == -1 || loc[0] < best {
				best = loc[0]
			}
		}
	}
	if best == -1 {
		return 0
	}
	return lineOf(src, best)
}

// windowAfter returns the text from byte offset idx to idx+n bytes (clamped
// to len(src)).
func windowAfter(src string, idx, n int) string {
	end := idx + n
	if end > len(src) {
		end = len(src)
	}
	if idx < 0 || idx > len(src) {
		return ""
	}
	return src[idx:end]
}

// linesAfter returns the next n lines of src starting at byte offset idx.
func linesAfter(src string, idx, n int) string {
	if idx < 0 || idx >= len(src) {
		return ""
	}
	rest := src[idx:]
	lines := strings.SplitN(rest, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
