package rpc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/resolver"
	"github.com/routewarden/routewarden/internal/tsconfig"
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

func TestFindProxyRoute(t *testing.T) {
	routes := []*model.RouteHandler{
		{File: "app/api/rpc/[trpc]/route.ts", Pathname: "/api/rpc/[trpc]"},
	}
	data := `import { appRouter } from "@/server/routers/_app"
import { fetchRequestHandler } from "@trpc/server/adapters/fetch"
export const GET = (req) => fetchRequestHandler({ router: appRouter, req })
`
	dir := t.TempDir()
	routes[0].File = filepath.Join(dir, routes[0].File)
	writeFile(t, routes[0].File, data)

	found := FindProxyRoute(routes)
	if found == nil {
		t.Fatal("expected proxy route to be found")
	}
}

func TestDiscoverRootRouterProceduresAndSubRouter(t *testing.T) {
	dir := t.TempDir()

	proxyFile := filepath.Join(dir, "app/api/rpc/[trpc]/route.ts")
	writeFile(t, proxyFile, `import { appRouter } from "../../../../server/routers/_app"
import { fetchRequestHandler } from "@trpc/server/adapters/fetch"
export const GET = (req) => fetchRequestHandler({ router: appRouter, req })
`)

	rootFile := filepath.Join(dir, "server/routers/_app.ts")
	writeFile(t, rootFile, `import { postRouter } from "./post"

export const appRouter = createTRPCRouter({
  createUser: publicProcedure.input(z.object({ name: z.string() })).mutation(async ({ input }) => {
    return db.user.create({ data: input })
  }),
  post: postRouter,
})
`)

	subFile := filepath.Join(dir, "server/routers/post.ts")
	writeFile(t, subFile, `export const postRouter = createTRPCRouter({
  list: protectedProcedure.query(async () => {
    return db.post.findMany()
  }),
})
`)

	r := resolver.New(dir, tsconfig.Config{})
	procs := Discover(&model.RouteHandler{File: proxyFile}, r)

	if len(procs) != 2 {
		t.Fatalf("expected 2 procedures, got %d: %+v", len(procs), procs)
	}

	var createUser, list *model.RPCProcedure
	for _, p := range procs {
		switch p.Name {
		case "createUser":
			createUser = p
		case "list":
			list = p
		}
	}
	if createUser == nil {
		t.Fatal("expected createUser procedure")
	}
	if createUser.ProcedureType != model.ProcedureTypePublic {
		t.Errorf("expected public, got %s", createUser.ProcedureType)
	}
	if createUser.ProcedureKind != model.ProcedureKindMutation {
		t.Errorf("expected mutation, got %s", createUser.ProcedureKind)
	}
	if !createUser.Signals.DBWrite {
		t.Error("expected DBWrite signal on createUser")
	}

	if list == nil {
		t.Fatal("expected list procedure from sub-router")
	}
	if list.ProcedureType != model.ProcedureTypeProtected {
		t.Errorf("expected protected, got %s", list.ProcedureType)
	}
	if list.ProcedureKind != model.ProcedureKindQuery {
		t.Errorf("expected query, got %s", list.ProcedureKind)
	}
	if list.File != subFile {
		t.Errorf("expected procedure file to be sub-router file, got %s", list.File)
	}
}

func TestDiscoverMissingRootRouterReturnsNil(t *testing.T) {
	dir := t.TempDir()
	proxyFile := filepath.Join(dir, "app/api/rpc/[trpc]/route.ts")
	writeFile(t, proxyFile, `export const GET = (req) => new Response("ok")`)

	r := resolver.New(dir, tsconfig.Config{})
	procs := Discover(&model.RouteHandler{File: proxyFile}, r)
	if procs != nil {
		t.Errorf("expected nil procedures, got %+v", procs)
	}
}
