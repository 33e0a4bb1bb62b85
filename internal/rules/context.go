// Package rules evaluates the six severity-and-confidence rules over a
// populated endpoint index and protection summary (spec §4.8).
package rules

import (
	"path/filepath"
	"strings"

	"github.com/routewarden/routewarden/internal/model"
)

// Context is the read-only input the rule engine evaluates over. Sources
// holds the raw file text for every file a rule may need to re-scan,
// pre-loaded by the caller so rules never perform I/O themselves (spec §7:
// "rules never throw on bad inputs").
type Context struct {
	Routes     []*model.RouteHandler
	Actions    []*model.ServerAction
	Procedures []*model.RPCProcedure
	Wrappers   map[string]*model.WrapperAnalysis
	Hints      model.Hints
	Config     model.Config
	Sources    map[string]string

	ORMPresent           bool
	SchemaHasTenantField bool
	TenancyBootstrapSafe bool
	IncludeFiles         []string
}

func (c Context) source(file string) string {
	return c.Sources[file]
}

// ruleSeverityCap returns the configured severity cap for rule, or def if
// unset.
func ruleSeverityCap(cfg model.Config, rule model.RuleID, def model.Severity) model.Severity {
	if rc, ok := cfg.Rules[rule]; ok && rc.Severity != "" {
		return rc.Severity
	}
	return def
}

// clampSeverity returns the lower-ranked of s and cap.
func clampSeverity(s, cap model.Severity) model.Severity {
	if model.SeverityRank(s) > model.SeverityRank(cap) {
		return cap
	}
	return s
}

// allowlisted reports whether file matches any of patterns, tried first as
// a glob (filepath.Match) and falling back to a plain substring match.
func allowlisted(file string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, file); err == nil && ok {
			return true
		}
		if strings.Contains(file, p) {
			return true
		}
	}
	return false
}
