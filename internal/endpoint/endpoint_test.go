package endpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverRoutesUnprotectedMutation(t *testing.T) {
	tmpDir := t.TempDir()
	apiDir := filepath.Join(tmpDir, "api", "users")
	if err := os.MkdirAll(apiDir, 0755); err != nil {
		t.Fatalf("failed to create api dir: %v", err)
	}
	content := `export async function POST(request) {
  const body = await request.json();
  await db.user.create({ data: body });
}
`
	if err := os.WriteFile(filepath.Join(apiDir, "route.ts"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write route.ts: %v", err)
	}

	routes, skipped := DiscoverRoutes(tmpDir)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped files: %v", skipped)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}

	r := routes[0]
	if len(r.Methods) != 1 || r.Methods[0] != "POST" {
		t.Errorf("expected Methods [POST], got %v", r.Methods)
	}
	if r.Pathname != "/api/users" {
		t.Errorf("expected Pathname /api/users, got %s", r.Pathname)
	}
	if !r.IsAPI {
		t.Error("expected IsAPI true")
	}
	if !r.Signals.MutationEvidence || !r.Signals.DBWrite {
		t.Error("expected DB write mutation evidence")
	}
	if !r.Signals.BodyRead {
		t.Error("expected body read evidence")
	}
}

func TestDiscoverRoutesMalformedPublicIntent(t *testing.T) {
	tmpDir := t.TempDir()
	apiDir := filepath.Join(tmpDir, "api", "ping")
	if err := os.MkdirAll(apiDir, 0755); err != nil {
		t.Fatalf("failed to create api dir: %v", err)
	}
	content := "// proto:public-intent\nexport async function GET() {\n  return new Response('ok')\n}\n"
	if err := os.WriteFile(filepath.Join(apiDir, "route.ts"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write route.ts: %v", err)
	}

	routes, _ := DiscoverRoutes(tmpDir)
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].MalformedPublicIntent == nil {
		t.Fatal("expected MalformedPublicIntent to be set")
	}
	if routes[0].PublicIntent != nil {
		t.Error("expected PublicIntent nil when malformed")
	}
}

func TestDiscoverRoutesValidPublicIntent(t *testing.T) {
	tmpDir := t.TempDir()
	apiDir := filepath.Join(tmpDir, "api", "status")
	if err := os.MkdirAll(apiDir, 0755); err != nil {
		t.Fatalf("failed to create api dir: %v", err)
	}
	content := `// proto:public-intent reason="health aggregator"
export async function GET(request) {
  const target = new URL(request.url).searchParams.get("target")
  return fetch(target)
}
`
	if err := os.WriteFile(filepath.Join(apiDir, "route.ts"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write route.ts: %v", err)
	}

	routes, _ := DiscoverRoutes(tmpDir)
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].PublicIntent == nil {
		t.Fatal("expected PublicIntent to be set")
	}
	if routes[0].PublicIntent.Reason != "health aggregator" {
		t.Errorf("expected reason 'health aggregator', got %q", routes[0].PublicIntent.Reason)
	}
}

func TestDiscoverServerActionsFileLevelDirective(t *testing.T) {
	tmpDir := t.TempDir()
	actionsDir := filepath.Join(tmpDir, "actions")
	if err := os.MkdirAll(actionsDir, 0755); err != nil {
		t.Fatalf("failed to create actions dir: %v", err)
	}
	content := `"use server"

export async function createUser(data) {
  await db.user.create({ data })
}

export async function deleteUser(id) {
  await db.user.delete({ where: { id } })
}
`
	if err := os.WriteFile(filepath.Join(actionsDir, "user.ts"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write user.ts: %v", err)
	}

	actions, skipped := DiscoverServerActions(tmpDir)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped files: %v", skipped)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	for _, a := range actions {
		if !a.Signals.DBWrite {
			t.Errorf("expected DBWrite true for action %s", a.Name)
		}
	}
}

func TestHasOutboundFetchWithRequestInfluencedURL(t *testing.T) {
	src := `const target = new URL(request.url).searchParams.get("target"); fetch(target)`
	if !hasOutboundFetchWithRequestInfluencedURL(src) {
		t.Error("expected SSRF-surface heuristic to match")
	}

	benign := `fetch("https://fixed.example.com/health")`
	if hasOutboundFetchWithRequestInfluencedURL(benign) {
		t.Error("expected fixed-URL fetch not to match")
	}
}
