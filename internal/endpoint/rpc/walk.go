package rpc

import (
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/endpoint"
	"github.com/routewarden/routewarden/internal/model"
)

// procedureValueRe matches a router-entry value beginning with a
// (public|protected|...)?Procedure identifier, per spec §4.4.
var procedureValueRe = regexp.MustCompile(`^((?:public|protected|authed|admin|private|authenticated)?Procedure)\b`)

var procedureKindRe = regexp.MustCompile(`\.(mutation|query|subscription)\s*\(`)

var bareIdentifierRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// entry is one top-level key: value pair found while walking a router
// object literal.
type entry struct {
	key         string
	identifier  string // sub-router reference identifier, when !isProcedure
	body        string // gathered procedure text, when isProcedure
	line        int
	isProcedure bool
}

// routerObjectOpenRe locates the object-literal argument passed to the
// router-builder call, e.g. "createTRPCRouter({" or "router({".
var routerObjectOpenRe = regexp.MustCompile(`(?:createTRPCRouter|router|t\.router)\s*\(\s*\{`)

// walkRouterEntries finds the router-builder call's object-literal body
// and walks its top-level entries, tracking brace depth (spec §4.4).
func walkRouterEntries(src string) []entry {
	loc := routerObjectOpenRe.FindStringIndex(src)
	if loc == nil {
		return nil
	}
	openBrace := strings.LastIndex(src[:loc[1]], "{")
	body := extractBraceBody(src, openBrace)
	if body == "" {
		return nil
	}

	return splitTopLevelEntries(src, openBrace, body)
}

// extractBraceBody returns the full "{ ... }" text starting at openIdx
// (the index of the opening brace), tracking depth.
func extractBraceBody(src string, openIdx int) string {
	if openIdx < 0 || openIdx >= len(src) || src[openIdx] != '{' {
		return ""
	}
	depth := 0
	for i := openIdx; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[openIdx : i+1]
			}
		}
	}
	return ""
}

// splitTopLevelEntries walks the inner text of a "{ ... }" object literal
// (offset baseOffset into src, for line-number bookkeeping) splitting on
// top-level commas (brace/paren/bracket depth zero) to produce key:value
// entries, classifying each as a procedure or a sub-router reference.
func splitTopLevelEntries(src string, baseOffset int, body string) []entry {
	inner := body[1 : len(body)-1] // strip the outer braces
	var entries []entry

	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				if e, ok := classifyEntry(src, baseOffset+1+start, inner[start:i]); ok {
					entries = append(entries, e)
				}
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(inner[start:]) != "" {
		if e, ok := classifyEntry(src, baseOffset+1+start, inner[start:]); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// classifyEntry parses one raw "key: value" segment into an entry,
// gathering the value's full chain text if it's a procedure (spec §4.4:
// "collect procedure text by gathering subsequent lines until the chain
// closes").
func classifyEntry(src string, offset int, raw string) (entry, bool) {
	colon := strings.Index(raw, ":")
	if colon < 0 {
		return entry{}, false
	}
	key := strings.TrimSpace(raw[:colon])
	value := strings.TrimSpace(raw[colon+1:])
	if key == "" || value == "" {
		return entry{}, false
	}

	line := lineAt(src, offset)

	// The value text is already bounded by the top-level comma split in
	// splitTopLevelEntries — its extent IS "subsequent text until the
	// chain closes" (spec §4.4), no further scanning needed.
	if procedureValueRe.MatchString(value) {
		return entry{key: key, body: value, line: line, isProcedure: true}, true
	}

	// Sub-router reference: a bare identifier value (no call parens).
	if bareIdentifierRe.MatchString(value) {
		return entry{key: key, identifier: value, line: line, isProcedure: false}, true
	}
	return entry{}, false
}

func lineAt(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.Count(src[:offset], "\n") + 1
}

// procedureTypeFromName classifies a procedure by naming convention.
func procedureTypeFromName(identifier string) model.ProcedureType {
	lower := strings.ToLower(identifier)
	if strings.Contains(lower, "public") {
		return model.ProcedureTypePublic
	}
	if strings.Contains(lower, "protected") || strings.Contains(lower, "authed") ||
		strings.Contains(lower, "admin") || strings.Contains(lower, "private") ||
		strings.Contains(lower, "authenticated") {
		return model.ProcedureTypeProtected
	}
	return model.ProcedureTypeUnknown
}

func procedureKindFromBody(body string) model.ProcedureKind {
	m := procedureKindRe.FindStringSubmatch(body)
	if m == nil {
		return model.ProcedureKindUnknown
	}
	switch m[1] {
	case "mutation":
		return model.ProcedureKindMutation
	case "query":
		return model.ProcedureKindQuery
	case "subscription":
		return model.ProcedureKindSubscription
	}
	return model.ProcedureKindUnknown
}

func buildProcedure(file string, e entry) *model.RPCProcedure {
	m := procedureValueRe.FindStringSubmatch(e.body)
	identifier := ""
	if m != nil {
		identifier = m[1]
	}
	return &model.RPCProcedure{
		Name:          e.key,
		File:          file,
		Line:          e.line,
		ProcedureType: procedureTypeFromName(identifier),
		ProcedureKind: procedureKindFromBody(e.body),
		Signals:       endpoint.ScanMutationSignals(e.body, true),
	}
}
