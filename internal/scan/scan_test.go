package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/routewarden/routewarden/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// newFixture lays down the minimal manifest + app directory a Next.js
// project detector recognizes (project.Detect's package.json + app/ check).
func newFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"dependencies": {"next": "14.0.0"}}`)
	if err := os.MkdirAll(filepath.Join(root, "app"), 0755); err != nil {
		t.Fatalf("mkdir app failed: %v", err)
	}
	return root
}

func defaultConfig(t *testing.T) model.Config {
	t.Helper()
	return model.Config{WaiversFile: ".protoscan/waivers.json"}
}

// TestRunUnprotectedMutationProducesAuthFinding mirrors scenario S1 end to
// end through the full orchestrator (rule-level coverage of this scenario
// already lives in internal/rules/rules_test.go).
func TestRunUnprotectedMutationProducesAuthFinding(t *testing.T) {
	root := newFixture(t)
	writeFile(t, filepath.Join(root, "app", "api", "users", "route.ts"), `export async function POST(request) {
  const body = await request.json();
  await db.user.create({ data: body });
}`)

	result, err := Run(context.Background(), root, defaultConfig(t), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	found := false
	for _, f := range result.Active {
		if f.RuleID == model.RuleAuthBoundaryMissing {
			found = true
			if f.Severity != model.SeverityCritical {
				t.Errorf("expected critical severity, got %s", f.Severity)
			}
		}
	}
	if !found {
		t.Error("expected an AUTH-BOUNDARY-MISSING finding")
	}
	if result.Score == 100 {
		t.Error("expected score below 100 for an unprotected mutation")
	}
}

// TestRunStrongAuthSuppressesAuthAndRateLimitFindings mirrors scenario S4: a
// strongly-enforced direct auth call suppresses both AUTH and RATE-LIMIT
// findings.
func TestRunStrongAuthSuppressesAuthAndRateLimitFindings(t *testing.T) {
	root := newFixture(t)
	writeFile(t, filepath.Join(root, "app", "api", "users", "route.ts"), `export async function POST(request) {
  const session = await auth();
  if (!session) {
    return new Response("unauthorized", { status: 401 });
  }
  const body = await request.json();
  await db.user.create({ data: body });
}`)

	result, err := Run(context.Background(), root, defaultConfig(t), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, f := range result.Active {
		if f.RuleID == model.RuleAuthBoundaryMissing || f.RuleID == model.RuleRateLimitMissing {
			t.Errorf("unexpected %s finding: %+v", f.RuleID, f)
		}
	}
}

// TestRunEmptyProjectScoresHundred covers the empty-project boundary case:
// a recognized project with no route handlers, actions, or procedures
// produces no findings and a perfect score.
func TestRunEmptyProjectScoresHundred(t *testing.T) {
	root := newFixture(t)

	result, err := Run(context.Background(), root, defaultConfig(t), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Score != 100 {
		t.Errorf("expected score 100 for an empty project, got %d", result.Score)
	}
	if len(result.Active) != 0 {
		t.Errorf("expected no findings, got %+v", result.Active)
	}
}

// TestRunWebhookOnlyProjectSuppressesAuthFinding covers the webhook-only
// boundary case: a verified webhook signature check suppresses the auth
// finding even though the handler has no session lookup.
func TestRunWebhookOnlyProjectSuppressesAuthFinding(t *testing.T) {
	root := newFixture(t)
	writeFile(t, filepath.Join(root, "app", "api", "webhooks", "stripe", "route.ts"), `export async function POST(request) {
  const payload = await request.text();
  const sig = request.headers.get("stripe-signature");
  const event = stripe.webhooks.constructEvent(payload, sig, secret);
  await db.order.update({ where: { id: event.data.object.id }, data: { paid: true } });
}`)

	result, err := Run(context.Background(), root, defaultConfig(t), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, f := range result.Active {
		if f.RuleID == model.RuleAuthBoundaryMissing {
			t.Errorf("expected webhook signature check to suppress AUTH-BOUNDARY-MISSING, got %+v", f)
		}
	}
}

// TestRunMissingFrameworkReturnsError covers a project detector failure:
// no package.json manifest at root fails the whole scan up front.
func TestRunMissingFrameworkReturnsError(t *testing.T) {
	root := t.TempDir()

	if _, err := Run(context.Background(), root, defaultConfig(t), nil); err == nil {
		t.Error("expected an error for a project with no recognized manifest")
	}
}

// TestRunAppliesWaivers confirms a matching waiver removes a finding from
// Active and places it in Waived without changing the underlying rule
// evaluation.
func TestRunAppliesWaivers(t *testing.T) {
	root := newFixture(t)
	routeFile := filepath.Join(root, "app", "api", "users", "route.ts")
	writeFile(t, routeFile, `export async function POST(request) {
  const body = await request.json();
  await db.user.create({ data: body });
}`)

	cfg := defaultConfig(t)
	writeFile(t, filepath.Join(root, cfg.WaiversFile), `{"version":1,"waivers":[{"ruleId":"AUTH-BOUNDARY-MISSING","file":"`+routeFile+`","reason":"accepted risk"}]}`)

	result, err := Run(context.Background(), root, cfg, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, f := range result.Active {
		if f.RuleID == model.RuleAuthBoundaryMissing {
			t.Errorf("expected AUTH-BOUNDARY-MISSING to be waived, found active: %+v", f)
		}
	}
	waivedFound := false
	for _, f := range result.Waived {
		if f.RuleID == model.RuleAuthBoundaryMissing {
			waivedFound = true
		}
	}
	if !waivedFound {
		t.Error("expected AUTH-BOUNDARY-MISSING in waived findings")
	}
}

// TestRunAndBaselineDiffsAgainstPriorScan mirrors scenario S8 through the
// full orchestrator: a baseline recorded against one finding and a current
// scan producing a different one yields exactly one new finding and one
// resolved key.
func TestRunAndBaselineDiffsAgainstPriorScan(t *testing.T) {
	root := newFixture(t)
	routeA := filepath.Join(root, "app", "api", "a", "route.ts")
	writeFile(t, routeA, `export async function POST(request) {
  const body = await request.json();
  await db.user.create({ data: body });
}`)

	baselinePath := filepath.Join(root, ".protoscan", "baseline.json")
	cfg := defaultConfig(t)

	result1, diff1, err := RunAndBaseline(context.Background(), root, cfg, baselinePath, true, nil)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if diff1 != nil {
		t.Errorf("expected no diff on first baseline write, got %+v", diff1)
	}
	if len(result1.Active) == 0 {
		t.Fatal("expected at least one active finding from route a")
	}

	if err := os.Remove(routeA); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	routeB := filepath.Join(root, "app", "api", "b", "route.ts")
	writeFile(t, routeB, `export async function POST(request) {
  const body = await request.json();
  await db.user.create({ data: body });
}`)

	result2, diff2, err := RunAndBaseline(context.Background(), root, cfg, baselinePath, false, nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if diff2 == nil {
		t.Fatal("expected a baseline diff on the second run")
	}
	if len(diff2.NewFindings) != 1 {
		t.Errorf("expected exactly 1 new finding, got %d: %+v", len(diff2.NewFindings), diff2.NewFindings)
	}
	if len(diff2.ResolvedKeys) != 1 {
		t.Errorf("expected exactly 1 resolved key, got %d: %+v", len(diff2.ResolvedKeys), diff2.ResolvedKeys)
	}
	if len(result2.Active) == 0 {
		t.Fatal("expected at least one active finding from route b")
	}
}
