// Package finding holds the Finding and ScanResult shapes the rule engine,
// scorer, and formatters exchange — the output side of the pipeline,
// mirroring the input-side types in internal/model.
package finding

import (
	"sort"
	"strconv"

	"github.com/routewarden/routewarden/internal/model"
)

// Finding is one rule violation, as described in spec §3.
type Finding struct {
	RuleID           model.RuleID     `json:"ruleId"`
	Severity         model.Severity   `json:"severity"`
	Confidence       model.Confidence `json:"confidence"`
	Message          string           `json:"message"`
	File             string           `json:"file"`
	Line             int              `json:"line,omitempty"`
	Column           int              `json:"column,omitempty"`
	EndLine          int              `json:"endLine,omitempty"`
	EndColumn        int              `json:"endColumn,omitempty"`
	Snippet          string           `json:"snippet,omitempty"`
	Evidence         []string         `json:"evidence,omitempty"`
	ConfidenceReason string           `json:"confidenceRationale,omitempty"`
	Remediation      []string         `json:"remediation,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
}

// Key returns the stable baseline key for this finding: "ruleId::file::line",
// with line 0 when no line is known (spec §3/§4.10).
func (f Finding) Key() string {
	line := f.Line
	if line < 0 {
		line = 0
	}
	return string(f.RuleID) + "::" + f.File + "::" + strconv.Itoa(line)
}

// Less orders findings deterministically by (ruleId, file, line, column),
// the ordering guarantee of spec §5.
func Less(a, b Finding) bool {
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

// SortFindings sorts findings in place per the deterministic ordering.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return Less(findings[i], findings[j])
	})
}

// SeverityCounts tallies findings per severity plus a waived total.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"med"`
	Low      int `json:"low"`
	Waived   int `json:"waived"`
}

// CountBySeverity tallies active findings per severity.
func CountBySeverity(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityCritical:
			c.Critical++
		case model.SeverityHigh:
			c.High++
		case model.SeverityMedium:
			c.Medium++
		case model.SeverityLow:
			c.Low++
		}
	}
	return c
}

// SkippedFile records a per-file I/O error that did not fail the scan
// (spec §7: "per-file I/O errors are logged as skipped, do not fail the scan").
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// ScanResult is the top-level output of one scan invocation (spec §3/§6).
type ScanResult struct {
	Version      string           `json:"version"`
	ToolVersion  string           `json:"toolVersion"`
	ConfigHash   string           `json:"configHash"`
	IndexVersion string           `json:"indexVersion"`
	Timestamp    string           `json:"timestamp"`
	Framework    string           `json:"framework"`
	Dependencies map[string]bool  `json:"dependencies,omitempty"`
	Active       []Finding        `json:"active"`
	Waived       []Finding        `json:"waived"`
	Summary      SeverityCounts   `json:"summary"`
	Score        int              `json:"score"`
	Status       string           `json:"status"`
	Skipped      []SkippedFile    `json:"skipped,omitempty"`
}

// ScoreStatus buckets a 0-100 score per spec §4.9.
func ScoreStatus(score int) string {
	switch {
	case score >= 80:
		return "PASS"
	case score >= 50:
		return "WARN"
	default:
		return "FAIL"
	}
}
