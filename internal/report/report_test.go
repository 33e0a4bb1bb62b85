package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

func sampleResult() finding.ScanResult {
	active := []finding.Finding{
		{
			RuleID: model.RuleAuthBoundaryMissing, Severity: model.SeverityCritical, Confidence: model.ConfidenceHigh,
			Message: "missing auth boundary", File: "app/api/a/route.ts", Line: 10,
			Remediation: []string{"add an auth check"},
		},
	}
	return finding.ScanResult{
		Framework: "next",
		Active:    active,
		Summary:   finding.CountBySeverity(active),
		Score:     85,
		Status:    finding.ScoreStatus(85),
	}
}

func TestSARIFShape(t *testing.T) {
	data, err := SARIF(sampleResult(), "protoscan", "1.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(data, &log); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if log.Version != "2.1.0" {
		t.Errorf("expected version 2.1.0, got %s", log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(log.Runs))
	}
	run := log.Runs[0]
	if len(run.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(run.Results))
	}
	if run.Results[0].Level != "error" {
		t.Errorf("expected level=error for critical, got %s", run.Results[0].Level)
	}
	if run.Results[0].Locations[0].PhysicalLocation.Region.StartLine != 10 {
		t.Errorf("expected startLine 10, got %+v", run.Results[0].Locations[0])
	}
	if len(run.Tool.Driver.Rules) != 1 {
		t.Errorf("expected 1 de-duplicated rule, got %d", len(run.Tool.Driver.Rules))
	}
}

func TestSARIFOmitsRegionWhenNoLine(t *testing.T) {
	result := sampleResult()
	result.Active[0].Line = 0
	data, _ := SARIF(result, "protoscan", "1.0.0")
	var log sarifLog
	json.Unmarshal(data, &log)
	if log.Runs[0].Results[0].Locations[0].PhysicalLocation.Region != nil {
		t.Error("expected nil region when no line is known")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := JSON(sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got finding.ScanResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if got.Score != 85 || len(got.Active) != 1 {
		t.Errorf("unexpected round-trip: %+v", got)
	}
}

func TestPrettyIncludesScoreAndFinding(t *testing.T) {
	out := Pretty(sampleResult())
	if !strings.Contains(out, "85/100") {
		t.Errorf("expected score in output, got %s", out)
	}
	if !strings.Contains(out, "AUTH-BOUNDARY-MISSING") {
		t.Errorf("expected rule id in output, got %s", out)
	}
	if !strings.Contains(out, "app/api/a/route.ts:10") {
		t.Errorf("expected location in output, got %s", out)
	}
}

func TestPrettyNoActiveFindings(t *testing.T) {
	result := sampleResult()
	result.Active = nil
	out := Pretty(result)
	if !strings.Contains(out, "no active findings") {
		t.Errorf("expected no-findings message, got %s", out)
	}
}
