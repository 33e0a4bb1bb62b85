package protection

import (
	"testing"

	"github.com/routewarden/routewarden/internal/middleware"
	"github.com/routewarden/routewarden/internal/model"
)

func TestComputeDirectAuthCall(t *testing.T) {
	route := &model.RouteHandler{Pathname: "/api/users"}
	src := `export async function POST(req) {
  const session = await auth()
  if (!session) return new Response("unauthorized", { status: 401 })
  return db.user.create({ data: await req.json() })
}`
	hints := model.Hints{Auth: model.AuthHints{Functions: []string{"auth"}}}
	Compute(route, src, hints, nil, middleware.Analysis{})

	if !route.Protection.Auth.Satisfied || !route.Protection.Auth.Enforced {
		t.Fatalf("expected satisfied+enforced auth, got %+v", route.Protection.Auth)
	}
	if route.Protection.Auth.Sources[0] != model.SourceDirect {
		t.Errorf("expected source=direct, got %v", route.Protection.Auth.Sources)
	}
}

func TestComputeWrapperChainUnverified(t *testing.T) {
	route := &model.RouteHandler{Pathname: "/api/users"}
	src := `export const POST = withLogging(handler)`
	hints := model.Hints{}
	index := map[string]*model.WrapperAnalysis{
		"withLogging": {Name: "withLogging", Resolved: true},
	}
	Compute(route, src, hints, index, middleware.Analysis{})

	if route.Protection.Auth.Satisfied {
		t.Errorf("expected auth unsatisfied, got %+v", route.Protection.Auth)
	}
	if len(route.Protection.Auth.UnverifiedWrappers) != 1 || route.Protection.Auth.UnverifiedWrappers[0].Name != "withLogging" {
		t.Errorf("expected withLogging in unverifiedWrappers, got %v", route.Protection.Auth.UnverifiedWrappers)
	}
}

func TestComputeWrapperChainEnforced(t *testing.T) {
	route := &model.RouteHandler{Pathname: "/api/users"}
	src := `export const POST = withAuth(handler)`
	hints := model.Hints{}
	evidence := model.WrapperEvidence{}
	evidence.MarkAuthEnforced("fail-closed auth guard")
	index := map[string]*model.WrapperAnalysis{
		"withAuth": {Name: "withAuth", Resolved: true, Evidence: evidence},
	}
	Compute(route, src, hints, index, middleware.Analysis{})

	if !route.Protection.Auth.Satisfied || route.Protection.Auth.Sources[0] != model.SourceWrapper {
		t.Errorf("expected satisfied via wrapper source, got %+v", route.Protection.Auth)
	}
}

func TestComputeMiddlewareFallback(t *testing.T) {
	route := &model.RouteHandler{Pathname: "/api/users"}
	src := `export const GET = handler`
	mw := middleware.Analysis{Found: true, File: "middleware.ts", AuthLikely: true}
	Compute(route, src, model.Hints{}, nil, mw)

	if !route.Protection.Auth.Satisfied || route.Protection.Auth.Sources[0] != model.SourceMiddleware {
		t.Errorf("expected satisfied via middleware source, got %+v", route.Protection.Auth)
	}
}

func TestComputeRateLimitPackageImport(t *testing.T) {
	route := &model.RouteHandler{Pathname: "/api/users"}
	src := `import { Ratelimit } from "@upstash/ratelimit"
export const POST = handler`
	Compute(route, src, model.Hints{}, nil, middleware.Analysis{})

	if !route.Protection.RateLimit.Satisfied {
		t.Errorf("expected rate limit satisfied via package import, got %+v", route.Protection.RateLimit)
	}
}

func TestComputeNoProtectionDetected(t *testing.T) {
	route := &model.RouteHandler{Pathname: "/api/users"}
	src := `export const POST = async (req) => db.user.create({ data: await req.json() })`
	Compute(route, src, model.Hints{}, nil, middleware.Analysis{})

	if route.Protection.Auth.Satisfied || route.Protection.RateLimit.Satisfied {
		t.Errorf("expected neither facet satisfied, got %+v", route.Protection)
	}
}
