// Package config loads the optional JSON configuration file that tunes
// framework selection, include/exclude globs, CI gates, scoring overrides,
// detection hints, and rule severities (spec §6).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/routewarden/routewarden/internal/model"
)

// candidateNames is the fixed, ordered list of filenames searched for near
// the project root. The first match wins.
var candidateNames = []string{
	"protoscan.config.json",
	".protoscanrc.json",
	".protoscanrc",
}

const defaultWaiversFile = ".protoscan/waivers.json"

// Load searches root for the first matching candidate file and returns the
// parsed configuration with defaults applied to any field it doesn't set.
// A project with no config file gets the all-defaults Config, not an error.
func Load(root string) (model.Config, error) {
	path := Find(root)
	if path == "" {
		return defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg model.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return applyDefaults(cfg), nil
}

// Find returns the path of the first candidate config file present at root,
// or "" if none exists.
func Find(root string) string {
	for _, name := range candidateNames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// defaults returns the Config used when no config file is present.
func defaults() model.Config {
	return applyDefaults(model.Config{})
}

// applyDefaults fills in every field a partially-specified config left
// unset. Scoring defaults are intentionally left to internal/scoring.Compute,
// which already merges zero-value overrides against its own canonical
// constants — applyDefaults only fills what config.Load itself must decide.
func applyDefaults(cfg model.Config) model.Config {
	if cfg.Framework == "" {
		cfg.Framework = "nextjs"
	}
	if cfg.WaiversFile == "" {
		cfg.WaiversFile = defaultWaiversFile
	}
	if cfg.CI.FailOn == "" {
		cfg.CI.FailOn = model.SeverityCritical
	}
	if cfg.CI.MinConfidence == "" {
		cfg.CI.MinConfidence = model.ConfidenceMedium
	}
	if cfg.CI.MinScore == 0 {
		cfg.CI.MinScore = 50
	}
	return cfg
}
