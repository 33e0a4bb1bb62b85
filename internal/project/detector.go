package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// FrameworkName is the fixed framework tag protoscan supports (spec §6).
const FrameworkName = "next"

// frameworkDependency is the package.json dependency key that must be
// present for DetectResult.OK to be true.
const frameworkDependency = "next"

// appDirCandidates are the known application-directory conventions, tried
// in order.
var appDirCandidates = []string{"app", filepath.Join("src", "app")}

// routeHandlerExtensions lists the extensions a route.{ext} file may use.
var routeHandlerExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

// serverDirectiveMarker is the directive that marks a file or function as a
// server action.
const serverDirectiveMarker = `"use server"`

// maxServerActionProbeFiles bounds how many source files the detector reads
// while looking for a server-directive marker (spec §4.1: "first 100 source
// files").
const maxServerActionProbeFiles = 100

// DetectResult is the project detector's verdict (spec §4.1).
type DetectResult struct {
	OK               bool
	Reason           string
	AppDir           string
	HasRouteHandlers bool
	HasServerActions bool
}

// Detect confirms the framework layout: a package manifest at root declares
// the framework dependency, and one of the known application directory
// conventions resolves.
func Detect(root string) DetectResult {
	deps, err := readAllDependencies(filepath.Join(root, "package.json"))
	if err != nil {
		return DetectResult{OK: false, Reason: "no package.json manifest found at project root"}
	}

	if _, ok := deps[frameworkDependency]; !ok {
		return DetectResult{OK: false, Reason: "framework dependency \"" + frameworkDependency + "\" not declared in package.json"}
	}

	appDir := ""
	for _, candidate := range appDirCandidates {
		if info, err := os.Stat(filepath.Join(root, candidate)); err == nil && info.IsDir() {
			appDir = candidate
			break
		}
	}
	if appDir == "" {
		return DetectResult{OK: false, Reason: "no app/ or src/app/ directory found"}
	}

	full := filepath.Join(root, appDir)
	return DetectResult{
		OK:               true,
		AppDir:           appDir,
		HasRouteHandlers: probeRouteHandlers(full),
		HasServerActions: probeServerActions(full),
	}
}

// readAllDependencies merges dependencies and devDependencies from a
// package.json manifest.
func readAllDependencies(manifestPath string) (map[string]string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for k, v := range pkg.DevDependencies {
		merged[k] = v
	}
	for k, v := range pkg.Dependencies {
		merged[k] = v
	}
	return merged, nil
}

// probeRouteHandlers reports whether any route.{ext} file exists anywhere
// under appDir.
func probeRouteHandlers(appDir string) bool {
	found := false
	_ = filepath.Walk(appDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || found {
			return nil
		}
		if info.IsDir() {
			if path != appDir && shouldIgnoreDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		if base == "route" && routeHandlerExtensions[ext] {
			found = true
		}
		return nil
	})
	return found
}

// probeServerActions scans the first maxServerActionProbeFiles source files
// under appDir for a server-directive marker, file-level or inline.
func probeServerActions(appDir string) bool {
	count := 0
	found := false
	_ = filepath.Walk(appDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || found || count >= maxServerActionProbeFiles {
			return nil
		}
		if info.IsDir() {
			if path != appDir && shouldIgnoreDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !routeHandlerExtensions[filepath.Ext(path)] {
			return nil
		}
		count++
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if strings.Contains(string(data), serverDirectiveMarker) {
			found = true
		}
		return nil
	})
	return found
}

func shouldIgnoreDir(name string) bool {
	switch name {
	case "node_modules", ".git", ".next", "dist", "build", "coverage", StateDir:
		return true
	default:
		return false
	}
}
