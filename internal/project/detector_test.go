package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root string, deps string) {
	t.Helper()
	manifest := `{"name": "app", "dependencies": {` + deps + `}}`
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write package.json: %v", err)
	}
}

func TestDetectMissingManifest(t *testing.T) {
	tmpDir := t.TempDir()

	result := Detect(tmpDir)
	if result.OK {
		t.Fatal("expected OK false with no package.json")
	}
	if result.Reason == "" {
		t.Error("expected a machine-readable reason")
	}
}

func TestDetectMissingFrameworkDependency(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"react": "^18.0.0"`)

	result := Detect(tmpDir)
	if result.OK {
		t.Fatal("expected OK false without the framework dependency")
	}
}

func TestDetectMissingAppDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"next": "^14.0.0"`)

	result := Detect(tmpDir)
	if result.OK {
		t.Fatal("expected OK false without an app/ or src/app/ directory")
	}
}

func TestDetectSucceedsWithAppDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"next": "^14.0.0"`)
	if err := os.MkdirAll(filepath.Join(tmpDir, "app"), 0755); err != nil {
		t.Fatalf("failed to create app dir: %v", err)
	}

	result := Detect(tmpDir)
	if !result.OK {
		t.Fatalf("expected OK true, got reason %q", result.Reason)
	}
	if result.AppDir != "app" {
		t.Errorf("expected AppDir 'app', got %q", result.AppDir)
	}
}

func TestDetectSucceedsWithSrcAppDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"next": "^14.0.0"`)
	if err := os.MkdirAll(filepath.Join(tmpDir, "src", "app"), 0755); err != nil {
		t.Fatalf("failed to create src/app dir: %v", err)
	}

	result := Detect(tmpDir)
	if !result.OK {
		t.Fatalf("expected OK true, got reason %q", result.Reason)
	}
	if result.AppDir != filepath.Join("src", "app") {
		t.Errorf("expected AppDir 'src/app', got %q", result.AppDir)
	}
}

func TestDetectFindsRouteHandler(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"next": "^14.0.0"`)
	apiDir := filepath.Join(tmpDir, "app", "api", "users")
	if err := os.MkdirAll(apiDir, 0755); err != nil {
		t.Fatalf("failed to create api dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(apiDir, "route.ts"), []byte("export async function GET() {}"), 0644); err != nil {
		t.Fatalf("failed to write route.ts: %v", err)
	}

	result := Detect(tmpDir)
	if !result.OK {
		t.Fatalf("expected OK true, got reason %q", result.Reason)
	}
	if !result.HasRouteHandlers {
		t.Error("expected HasRouteHandlers true")
	}
	if result.HasServerActions {
		t.Error("expected HasServerActions false")
	}
}

func TestDetectFindsServerAction(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"next": "^14.0.0"`)
	actionsDir := filepath.Join(tmpDir, "app", "actions")
	if err := os.MkdirAll(actionsDir, 0755); err != nil {
		t.Fatalf("failed to create actions dir: %v", err)
	}
	content := "\"use server\"\n\nexport async function createUser() {}\n"
	if err := os.WriteFile(filepath.Join(actionsDir, "user.ts"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write user.ts: %v", err)
	}

	result := Detect(tmpDir)
	if !result.OK {
		t.Fatalf("expected OK true, got reason %q", result.Reason)
	}
	if !result.HasServerActions {
		t.Error("expected HasServerActions true")
	}
	if result.HasRouteHandlers {
		t.Error("expected HasRouteHandlers false")
	}
}

func TestDetectIgnoresNodeModules(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, `"next": "^14.0.0"`)
	if err := os.MkdirAll(filepath.Join(tmpDir, "app"), 0755); err != nil {
		t.Fatalf("failed to create app dir: %v", err)
	}
	nmDir := filepath.Join(tmpDir, "app", "node_modules", "some-pkg")
	if err := os.MkdirAll(nmDir, 0755); err != nil {
		t.Fatalf("failed to create node_modules dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nmDir, "route.ts"), []byte("export async function GET() {}"), 0644); err != nil {
		t.Fatalf("failed to write route.ts: %v", err)
	}

	result := Detect(tmpDir)
	if !result.OK {
		t.Fatalf("expected OK true, got reason %q", result.Reason)
	}
	if result.HasRouteHandlers {
		t.Error("expected HasRouteHandlers false when the only route.ts is under node_modules")
	}
}
