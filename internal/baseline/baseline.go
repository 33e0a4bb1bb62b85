// Package baseline loads, saves, and diffs the stored finding-key snapshot
// used to compute deltas between scans (spec §4.10, §6).
package baseline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

// Load reads a baseline file. A missing file is not an error: it simply
// means there is nothing to diff against yet.
func Load(path string) (*model.Baseline, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline file: %w", err)
	}
	var b model.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline file: %w", err)
	}
	return &b, nil
}

// Save writes b in its canonical shape.
func Save(path string, b model.Baseline) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline file: %w", err)
	}
	return nil
}

// FromScan builds a new baseline snapshot from a scan's active findings.
func FromScan(toolVersion, configHash, indexVersion, createdAt string, score int, active []finding.Finding) model.Baseline {
	keys := make([]string, 0, len(active))
	for _, f := range active {
		keys = append(keys, f.Key())
	}
	return model.Baseline{
		Version:      1,
		ToolVersion:  toolVersion,
		ConfigHash:   configHash,
		IndexVersion: indexVersion,
		CreatedAt:    createdAt,
		Score:        score,
		FindingKeys:  keys,
	}
}

// Diff compares a current scan's active findings and score against a stored
// baseline: newFindings is the current-order set of keys not present in the
// baseline; resolvedKeys is the baseline keys no longer present.
func Diff(b model.Baseline, active []finding.Finding, currentScore int) model.BaselineDiff {
	baselineSet := make(map[string]bool, len(b.FindingKeys))
	for _, k := range b.FindingKeys {
		baselineSet[k] = true
	}

	currentSet := make(map[string]bool, len(active))
	var newFindings []string
	for _, f := range active {
		key := f.Key()
		currentSet[key] = true
		if !baselineSet[key] {
			newFindings = append(newFindings, key)
		}
	}

	var resolvedKeys []string
	for _, k := range b.FindingKeys {
		if !currentSet[k] {
			resolvedKeys = append(resolvedKeys, k)
		}
	}

	return model.BaselineDiff{
		NewFindings:  newFindings,
		ResolvedKeys: resolvedKeys,
		ScoreDelta:   currentScore - b.Score,
	}
}
