// Package waiver loads, matches, and persists file-scoped finding
// suppressions (spec §4.10, §6).
package waiver

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

// Load reads a waiver file, accepting either the versioned shape
// ({version, waivers}) or a bare legacy array.
func Load(path string) ([]model.Waiver, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read waiver file: %w", err)
	}

	var versioned model.WaiverFile
	if err := json.Unmarshal(data, &versioned); err == nil && versioned.Waivers != nil {
		return versioned.Waivers, nil
	}

	var legacy []model.Waiver
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse waiver file: %w", err)
	}
	return legacy, nil
}

// Save always writes the versioned shape (spec §6).
func Save(path string, waivers []model.Waiver) error {
	if waivers == nil {
		waivers = []model.Waiver{}
	}
	out := model.WaiverFile{Version: 1, Waivers: waivers}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal waiver file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write waiver file: %w", err)
	}
	return nil
}

// Matches reports whether w applies to f: same rule id and file, and not
// expired.
func Matches(w model.Waiver, f finding.Finding) bool {
	if w.RuleID != f.RuleID || w.File != f.File {
		return false
	}
	if w.Expiry == nil {
		return true
	}
	expiry, err := time.Parse("2006-01-02", *w.Expiry)
	if err != nil {
		return true
	}
	return !time.Now().After(expiry)
}

// Apply splits findings into active and waived sets, preserving order
// within each (spec §3 "Lifecycle"/§8 invariant 5: active ∩ waived = ∅,
// active ∪ waived = all produced findings).
func Apply(findings []finding.Finding, waivers []model.Waiver) (active, waived []finding.Finding) {
	for _, f := range findings {
		matched := false
		for _, w := range waivers {
			if Matches(w, f) {
				matched = true
				break
			}
		}
		if matched {
			waived = append(waived, f)
		} else {
			active = append(active, f)
		}
	}
	return active, waived
}
