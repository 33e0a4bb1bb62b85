package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StateDir is the workspace-local directory protoscan uses for derived,
	// rebuildable state — never the system of record (config/waiver/baseline
	// files live at project-root-relative paths the caller names directly).
	StateDir   = ".protoscan"
	StateFile  = "state.yaml"
	CacheDir   = "cache"
	CacheFile  = "cache.db"
	SearchDir  = "search"
)

// State is the small bit of workspace-local bookkeeping protoscan persists
// between runs: when the state directory was created and which project
// root it belongs to. Everything else the engine needs is recomputed fresh
// from the source tree on every scan.
type State struct {
	RootPath  string    `yaml:"root_path"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Project pairs a detected root path with its optional state directory.
type Project struct {
	RootPath string
	State    *State
}

// GetStatePath returns the path to the .protoscan directory.
func (p *Project) GetStatePath() string {
	return filepath.Join(p.RootPath, StateDir)
}

// GetStateFilePath returns the path to state.yaml.
func (p *Project) GetStateFilePath() string {
	return filepath.Join(p.GetStatePath(), StateFile)
}

// GetCachePath returns the path to the incremental-scan SQLite database.
func (p *Project) GetCachePath() string {
	return filepath.Join(p.GetStatePath(), CacheDir, CacheFile)
}

// GetSearchIndexPath returns the path to the Bleve finding search index.
func (p *Project) GetSearchIndexPath() string {
	return filepath.Join(p.GetStatePath(), SearchDir, "findings.bleve")
}

// HasState reports whether a .protoscan directory already exists.
func (p *Project) HasState() bool {
	info, err := os.Stat(p.GetStatePath())
	return err == nil && info.IsDir()
}

// EnsureState creates the .protoscan directory (and its state.yaml) if
// absent, and loads it if present. It never fails a scan: callers that
// cannot create or read state simply run without a cache/search index.
func (p *Project) EnsureState() error {
	if p.HasState() {
		return p.loadState()
	}

	dirs := []string{
		p.GetStatePath(),
		filepath.Join(p.GetStatePath(), CacheDir),
		filepath.Join(p.GetStatePath(), SearchDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory %s: %w", dir, err)
		}
	}

	p.State = &State{RootPath: p.RootPath, CreatedAt: time.Now()}
	return p.saveState()
}

func (p *Project) loadState() error {
	data, err := os.ReadFile(p.GetStateFilePath())
	if err != nil {
		return fmt.Errorf("failed to read protoscan state: %w", err)
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse protoscan state: %w", err)
	}
	p.State = &s
	return nil
}

func (p *Project) saveState() error {
	data, err := yaml.Marshal(p.State)
	if err != nil {
		return fmt.Errorf("failed to marshal protoscan state: %w", err)
	}
	if err := os.WriteFile(p.GetStateFilePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write protoscan state: %w", err)
	}
	return nil
}

// FindWorkspaceRoot walks upward from startPath looking for a monorepo
// marker: a workspace manifest (pnpm-workspace.yaml), a monorepo
// configuration file (turbo.json, nx.json, lerna.json), or a package.json
// containing a "workspaces" key. Returns "" if none is found before the
// filesystem root (not an error — most projects aren't monorepos).
func FindWorkspaceRoot(startPath string) string {
	markers := []string{"pnpm-workspace.yaml", "turbo.json", "nx.json", "lerna.json"}

	path := startPath
	for {
		for _, m := range markers {
			if info, err := os.Stat(filepath.Join(path, m)); err == nil && !info.IsDir() {
				return path
			}
		}
		if hasWorkspacesKey(filepath.Join(path, "package.json")) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return ""
		}
		path = parent
	}
}

func hasWorkspacesKey(manifestPath string) bool {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return false
	}
	var pkg struct {
		Workspaces interface{} `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	return pkg.Workspaces != nil
}
