package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureStateCreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	p := &Project{RootPath: tmpDir}
	if err := p.EnsureState(); err != nil {
		t.Fatalf("EnsureState failed: %v", err)
	}

	dirs := []string{
		p.GetStatePath(),
		filepath.Join(p.GetStatePath(), CacheDir),
		filepath.Join(p.GetStatePath(), SearchDir),
	}
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory not created: %s", dir)
		}
	}

	if p.State == nil {
		t.Fatal("State is nil after EnsureState")
	}
	if p.State.RootPath != tmpDir {
		t.Errorf("expected RootPath %s, got %s", tmpDir, p.State.RootPath)
	}
}

func TestEnsureStateLoadsExisting(t *testing.T) {
	tmpDir := t.TempDir()

	p := &Project{RootPath: tmpDir}
	if err := p.EnsureState(); err != nil {
		t.Fatalf("first EnsureState failed: %v", err)
	}
	createdAt := p.State.CreatedAt

	p2 := &Project{RootPath: tmpDir}
	if err := p2.EnsureState(); err != nil {
		t.Fatalf("second EnsureState failed: %v", err)
	}

	if !p2.State.CreatedAt.Equal(createdAt) {
		t.Errorf("expected CreatedAt %v to be preserved, got %v", createdAt, p2.State.CreatedAt)
	}
}

func TestHasState(t *testing.T) {
	tmpDir := t.TempDir()
	p := &Project{RootPath: tmpDir}

	if p.HasState() {
		t.Error("expected HasState false before EnsureState")
	}
	if err := p.EnsureState(); err != nil {
		t.Fatalf("EnsureState failed: %v", err)
	}
	if !p.HasState() {
		t.Error("expected HasState true after EnsureState")
	}
}

func TestProjectPaths(t *testing.T) {
	p := &Project{RootPath: "/test/project"}

	if p.GetStatePath() != "/test/project/.protoscan" {
		t.Errorf("unexpected state path: %s", p.GetStatePath())
	}
	if p.GetStateFilePath() != "/test/project/.protoscan/state.yaml" {
		t.Errorf("unexpected state file path: %s", p.GetStateFilePath())
	}
	if p.GetCachePath() != "/test/project/.protoscan/cache/cache.db" {
		t.Errorf("unexpected cache path: %s", p.GetCachePath())
	}
	if p.GetSearchIndexPath() != "/test/project/.protoscan/search/findings.bleve" {
		t.Errorf("unexpected search index path: %s", p.GetSearchIndexPath())
	}
}

func TestFindWorkspaceRootByMarkerFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "turbo.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write turbo.json: %v", err)
	}

	nested := filepath.Join(tmpDir, "apps", "web")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	root := FindWorkspaceRoot(nested)
	if root != tmpDir {
		t.Errorf("expected workspace root %s, got %s", tmpDir, root)
	}
}

func TestFindWorkspaceRootByWorkspacesKey(t *testing.T) {
	tmpDir := t.TempDir()
	manifest := `{"name": "monorepo", "workspaces": ["packages/*"]}`
	if err := os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write package.json: %v", err)
	}

	nested := filepath.Join(tmpDir, "packages", "api")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	root := FindWorkspaceRoot(nested)
	if root != tmpDir {
		t.Errorf("expected workspace root %s, got %s", tmpDir, root)
	}
}

func TestFindWorkspaceRootNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	if root := FindWorkspaceRoot(nested); root != "" {
		t.Errorf("expected no workspace root, got %s", root)
	}
}
