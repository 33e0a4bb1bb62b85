package report

import (
	"encoding/json"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

// SARIF 2.1.0 output shapes (https://docs.oasis-open.org/sarif/sarif/v2.1.0/).

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string                 `json:"ruleId"`
	Level      string                 `json:"level"`
	Message    sarifMessage           `json:"message"`
	Locations  []sarifLocation        `json:"locations,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// SARIF renders result as a SARIF 2.1.0 log (spec §6): one run, one tool
// driver carrying the de-duplicated rule set of active and waived findings,
// and one result per active finding.
func SARIF(result finding.ScanResult, toolName, toolVersion string) ([]byte, error) {
	all := append(append([]finding.Finding{}, result.Active...), result.Waived...)

	seen := map[string]bool{}
	var rules []sarifRule
	for _, f := range all {
		id := string(f.RuleID)
		if seen[id] {
			continue
		}
		seen[id] = true
		rules = append(rules, sarifRule{ID: id, ShortDescription: sarifMessage{Text: id}})
	}

	results := make([]sarifResult, 0, len(result.Active))
	for _, f := range result.Active {
		results = append(results, buildSarifResult(f))
	}

	log := sarifLog{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{Name: toolName, Version: toolVersion, Rules: rules},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(log, "", "  ")
}

func buildSarifResult(f finding.Finding) sarifResult {
	r := sarifResult{
		RuleID:  string(f.RuleID),
		Level:   sarifLevel(f.Severity),
		Message: sarifMessage{Text: f.Message},
		Properties: map[string]interface{}{
			"confidence": string(f.Confidence),
		},
	}
	if len(f.Evidence) > 0 {
		r.Properties["evidence"] = f.Evidence
	}
	if len(f.Remediation) > 0 {
		r.Properties["remediation"] = f.Remediation
	}

	loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: f.File}}
	if f.Line > 0 {
		loc.Region = &sarifRegion{StartLine: f.Line}
		if f.Column > 0 {
			loc.Region.StartColumn = f.Column
		}
	}
	r.Locations = []sarifLocation{{PhysicalLocation: loc}}

	return r
}

func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "error"
	case model.SeverityHigh:
		return "warning"
	case model.SeverityMedium, model.SeverityLow:
		return "note"
	default:
		return "none"
	}
}
