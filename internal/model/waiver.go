package model

// Waiver is a file-scoped suppression of a rule finding (spec §3/§4.10).
type Waiver struct {
	RuleID    RuleID  `json:"ruleId"`
	File      string  `json:"file"`
	Reason    string  `json:"reason"`
	Expiry    *string `json:"expiry,omitempty"` // ISO 8601 date
	CreatedAt string  `json:"createdAt"`
}

// WaiverFile is the versioned on-disk shape, always written in this form
// (spec §6: "Always written in versioned form").
type WaiverFile struct {
	Version int      `json:"version"`
	Waivers []Waiver `json:"waivers"`
}

// Baseline is a stored snapshot of finding keys used to compute deltas
// against a new scan (spec §3/§4.10).
type Baseline struct {
	Version      int      `json:"version"`
	ToolVersion  string   `json:"toolVersion"`
	ConfigHash   string   `json:"configHash"`
	IndexVersion string   `json:"indexVersion"`
	CreatedAt    string   `json:"createdAt"`
	Score        int      `json:"score"`
	FindingKeys  []string `json:"findingKeys"`
}

// BaselineDiff is the result of comparing a current scan against a stored
// baseline (spec §4.10).
type BaselineDiff struct {
	NewFindings  []string `json:"newFindings"`
	ResolvedKeys []string `json:"resolvedKeys"`
	ScoreDelta   int      `json:"scoreDelta"`
}
