package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routewarden/routewarden/internal/tsconfig"
)

func TestResolveRelativeSpecifier(t *testing.T) {
	tmpDir := t.TempDir()
	libDir := filepath.Join(tmpDir, "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatalf("failed to create lib dir: %v", err)
	}
	authFile := filepath.Join(libDir, "auth.ts")
	if err := os.WriteFile(authFile, []byte("export function auth() {}"), 0644); err != nil {
		t.Fatalf("failed to write auth.ts: %v", err)
	}
	routeFile := filepath.Join(tmpDir, "api", "route.ts")

	r := New(tmpDir, tsconfig.Config{})
	resolved := r.Resolve("../lib/auth", routeFile)
	if resolved != authFile {
		t.Errorf("expected %s, got %s", authFile, resolved)
	}
}

func TestResolveViaTsconfigPaths(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src", "lib")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatalf("failed to create src/lib dir: %v", err)
	}
	authFile := filepath.Join(srcDir, "auth.ts")
	if err := os.WriteFile(authFile, []byte("export function auth() {}"), 0644); err != nil {
		t.Fatalf("failed to write auth.ts: %v", err)
	}

	cfg := tsconfig.Config{BaseURL: tmpDir, Paths: map[string][]string{"@/*": {"src/*"}}}
	r := New(tmpDir, cfg)
	resolved := r.Resolve("@/lib/auth", filepath.Join(tmpDir, "app", "api", "route.ts"))
	if resolved != authFile {
		t.Errorf("expected %s, got %s", authFile, resolved)
	}
}

func TestResolveAtAlias(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src", "lib")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatalf("failed to create src/lib dir: %v", err)
	}
	authFile := filepath.Join(srcDir, "auth.ts")
	if err := os.WriteFile(authFile, []byte("export function auth() {}"), 0644); err != nil {
		t.Fatalf("failed to write auth.ts: %v", err)
	}

	r := New(tmpDir, tsconfig.Config{})
	resolved := r.Resolve("@/lib/auth", filepath.Join(tmpDir, "app", "api", "route.ts"))
	if resolved != authFile {
		t.Errorf("expected %s, got %s", authFile, resolved)
	}
}

func TestResolveBarePackageSpecifierFails(t *testing.T) {
	tmpDir := t.TempDir()
	r := New(tmpDir, tsconfig.Config{})
	if resolved := r.Resolve("react", filepath.Join(tmpDir, "app", "route.ts")); resolved != "" {
		t.Errorf("expected bare specifier to fail, got %s", resolved)
	}
}

func TestFollowReExportNamedHop(t *testing.T) {
	tmpDir := t.TempDir()
	libDir := filepath.Join(tmpDir, "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatalf("failed to create lib dir: %v", err)
	}

	defFile := filepath.Join(libDir, "impl.ts")
	if err := os.WriteFile(defFile, []byte("export function withAuth(handler) { return handler }"), 0644); err != nil {
		t.Fatalf("failed to write impl.ts: %v", err)
	}
	barrelFile := filepath.Join(libDir, "index.ts")
	if err := os.WriteFile(barrelFile, []byte(`export { withAuth } from "./impl"`), 0644); err != nil {
		t.Fatalf("failed to write index.ts: %v", err)
	}

	r := New(tmpDir, tsconfig.Config{})
	resolved := r.FollowReExport("withAuth", barrelFile)
	if resolved != defFile {
		t.Errorf("expected %s, got %s", defFile, resolved)
	}
}

func TestFollowReExportWildcard(t *testing.T) {
	tmpDir := t.TempDir()
	libDir := filepath.Join(tmpDir, "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatalf("failed to create lib dir: %v", err)
	}

	defFile := filepath.Join(libDir, "impl.ts")
	if err := os.WriteFile(defFile, []byte("export function withAuth(handler) { return handler }"), 0644); err != nil {
		t.Fatalf("failed to write impl.ts: %v", err)
	}
	barrelFile := filepath.Join(libDir, "index.ts")
	if err := os.WriteFile(barrelFile, []byte(`export * from "./impl"`), 0644); err != nil {
		t.Fatalf("failed to write index.ts: %v", err)
	}

	r := New(tmpDir, tsconfig.Config{})
	resolved := r.FollowReExport("withAuth", barrelFile)
	if resolved != defFile {
		t.Errorf("expected %s, got %s", defFile, resolved)
	}
}

func TestFollowReExportFailsSafe(t *testing.T) {
	tmpDir := t.TempDir()
	onlyFile := filepath.Join(tmpDir, "index.ts")
	if err := os.WriteFile(onlyFile, []byte("export const config = {}"), 0644); err != nil {
		t.Fatalf("failed to write index.ts: %v", err)
	}

	r := New(tmpDir, tsconfig.Config{})
	resolved := r.FollowReExport("withAuth", onlyFile)
	if resolved != onlyFile {
		t.Errorf("expected fallback to starting file %s, got %s", onlyFile, resolved)
	}
}
