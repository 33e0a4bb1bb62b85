// Package report renders a ScanResult as SARIF, JSON, or a human-readable
// pretty format (spec §6; out-of-scope design effort, but a real exercised
// interface).
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/routewarden/routewarden/internal/finding"
)

var titleCaser = cases.Title(language.English)

// Pretty renders result for a terminal: a header line with score/status,
// a line of per-severity and waived counts, then each active finding in the
// order given, then the list of skipped files.
func Pretty(result finding.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  score %d/100  (%s)\n", titleCaser.String(result.Framework), result.Score, result.Status)
	fmt.Fprintf(&b, "critical=%d high=%d med=%d low=%d waived=%d\n\n",
		result.Summary.Critical, result.Summary.High, result.Summary.Medium, result.Summary.Low, result.Summary.Waived)

	if len(result.Active) == 0 {
		b.WriteString("no active findings\n")
	}
	for _, f := range result.Active {
		writeFinding(&b, f)
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(&b, "\n%d file(s) skipped:\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(&b, "  %s: %s\n", s.File, s.Reason)
		}
	}

	return b.String()
}

func writeFinding(b *strings.Builder, f finding.Finding) {
	severity := titleCaser.String(string(f.Severity))
	location := f.File
	if f.Line > 0 {
		location = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	fmt.Fprintf(b, "[%s] %s  %s\n", severity, f.RuleID, location)
	fmt.Fprintf(b, "  %s  (confidence: %s)\n", f.Message, f.Confidence)
	if f.Snippet != "" {
		fmt.Fprintf(b, "  > %s\n", f.Snippet)
	}
	for _, r := range f.Remediation {
		fmt.Fprintf(b, "  fix: %s\n", r)
	}
	b.WriteString("\n")
}
