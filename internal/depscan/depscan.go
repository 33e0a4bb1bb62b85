// Package depscan reads a project's manifest(s) into a dependency bitmap
// and derives the default auth/rate-limit/tenancy recognition hints that
// the wrapper and rule engine build on (spec §4.2).
package depscan

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/project"
)

// authFamilies maps each of the ten recognized auth-provider families to
// the package name(s) that identify it and the auth-function names it
// contributes to the derived hint set.
var authFamilies = []struct {
	family    string
	packages  []string
	functions []string
}{
	{"next-auth", []string{"next-auth", "@auth/core"}, []string{"auth", "getServerSession"}},
	{"clerk", []string{"@clerk/nextjs"}, []string{"auth", "currentUser"}},
	{"supabase", []string{"@supabase/supabase-js", "@supabase/ssr"}, []string{"getUser", "getSession"}},
	{"firebase-admin", []string{"firebase-admin"}, []string{"verifyIdToken"}},
	{"auth0", []string{"@auth0/nextjs-auth0"}, []string{"getSession", "withApiAuthRequired"}},
	{"lucia", []string{"lucia"}, []string{"validateSession"}},
	{"iron-session", []string{"iron-session"}, []string{"getIronSession"}},
	{"workos", []string{"@workos-inc/node"}, []string{"withAuth"}},
	{"stytch", []string{"stytch"}, []string{"authenticateSession"}},
	{"passport", []string{"passport"}, []string{"authenticate"}},
}

// rateLimitFamilies maps the three recognized rate-limit packages to their
// derived wrapper hint names.
var rateLimitFamilies = []struct {
	family   string
	packages []string
	wrappers []string
}{
	{"upstash", []string{"@upstash/ratelimit"}, []string{"ratelimit", "rateLimiter"}},
	{"arcjet", []string{"@arcjet/next"}, []string{"aj", "arcjet"}},
	{"rate-limiter-flexible", []string{"rate-limiter-flexible"}, []string{"rateLimiter", "limiter"}},
}

// ormFamilies maps the two recognized ORMs to their package names.
var ormFamilies = []struct {
	family   string
	packages []string
}{
	{"prisma", []string{"@prisma/client", "prisma"}},
	{"drizzle", []string{"drizzle-orm"}},
}

// rpcPackages identifies the typed-RPC marker dependency.
var rpcPackages = []string{"@trpc/server"}

// baseAuthFunctions is the ecosystem-independent base set of auth-function
// names every project gets regardless of detected dependencies.
var baseAuthFunctions = []string{"auth", "getSession", "getServerSession", "requireAuth", "requireUser"}

// baseRateLimitWrappers is the ecosystem-independent base set of
// rate-limit wrapper names.
var baseRateLimitWrappers = []string{"ratelimit", "rateLimit", "rateLimiter", "limiter"}

// defaultOrgFieldNames is the fixed default tenant-field vocabulary.
var defaultOrgFieldNames = []string{"orgId", "tenantId", "workspaceId", "organizationId"}

// Bitmap marks presence of each recognized ecosystem package family.
type Bitmap struct {
	Auth      map[string]bool `json:"auth"`
	RateLimit map[string]bool `json:"rateLimit"`
	ORM       map[string]bool `json:"orm"`
	RPC       bool            `json:"rpc"`
}

// HasAnyAuth reports whether any recognized auth family was detected.
func (b Bitmap) HasAnyAuth() bool {
	for _, v := range b.Auth {
		if v {
			return true
		}
	}
	return false
}

// HasAnyORM reports whether any recognized ORM was detected.
func (b Bitmap) HasAnyORM() bool {
	for _, v := range b.ORM {
		if v {
			return true
		}
	}
	return false
}

// Result is the dependency scanner's output: the bitmap plus the hints
// derived from it, ready to be union-merged with user config hints.
type Result struct {
	Bitmap Bitmap
	Hints  model.Hints
}

// Scan reads root's package manifest, merging in a workspace root's
// manifest (for keys missing locally) when one is found by an upward walk,
// and produces the dependency bitmap and derived hints.
func Scan(root string) (Result, error) {
	localDeps, err := readDependencies(filepath.Join(root, "package.json"))
	if err != nil {
		return Result{}, err
	}

	merged := make(map[string]string, len(localDeps))
	for k, v := range localDeps {
		merged[k] = v
	}

	if wsRoot := project.FindWorkspaceRoot(filepath.Dir(root)); wsRoot != "" && wsRoot != root {
		rootDeps, err := readDependencies(filepath.Join(wsRoot, "package.json"))
		if err == nil {
			for k, v := range rootDeps {
				if _, ok := merged[k]; !ok {
					merged[k] = v
				}
			}
		}
	}

	bitmap := Bitmap{
		Auth:      map[string]bool{},
		RateLimit: map[string]bool{},
		ORM:       map[string]bool{},
	}

	hints := model.Hints{
		Auth:      model.AuthHints{Functions: append([]string{}, baseAuthFunctions...)},
		RateLimit: model.RateLimitHints{Wrappers: append([]string{}, baseRateLimitWrappers...)},
		Tenancy:   model.TenancyHints{OrgFieldNames: append([]string{}, defaultOrgFieldNames...)},
	}

	for _, fam := range authFamilies {
		if anyPresent(merged, fam.packages) {
			bitmap.Auth[fam.family] = true
			hints.Auth.Functions = appendUnique(hints.Auth.Functions, fam.functions...)
		}
	}
	for _, fam := range rateLimitFamilies {
		if anyPresent(merged, fam.packages) {
			bitmap.RateLimit[fam.family] = true
			hints.RateLimit.Wrappers = appendUnique(hints.RateLimit.Wrappers, fam.wrappers...)
		}
	}
	for _, fam := range ormFamilies {
		if anyPresent(merged, fam.packages) {
			bitmap.ORM[fam.family] = true
		}
	}
	bitmap.RPC = anyPresent(merged, rpcPackages)

	return Result{Bitmap: bitmap, Hints: hints}, nil
}

// MergeHints union-merges derived hints with user-config hints, de-duplicated.
func MergeHints(derived, user model.Hints) model.Hints {
	return model.Hints{
		Auth: model.AuthHints{
			Functions:       appendUnique(derived.Auth.Functions, user.Auth.Functions...),
			MiddlewareFiles: appendUnique(derived.Auth.MiddlewareFiles, user.Auth.MiddlewareFiles...),
			AllowlistPaths:  appendUnique(derived.Auth.AllowlistPaths, user.Auth.AllowlistPaths...),
		},
		RateLimit: model.RateLimitHints{
			Wrappers:       appendUnique(derived.RateLimit.Wrappers, user.RateLimit.Wrappers...),
			AllowlistPaths: appendUnique(derived.RateLimit.AllowlistPaths, user.RateLimit.AllowlistPaths...),
		},
		Tenancy: model.TenancyHints{
			OrgFieldNames: appendUnique(derived.Tenancy.OrgFieldNames, user.Tenancy.OrgFieldNames...),
		},
	}
}

func readDependencies(manifestPath string) (map[string]string, error) {
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

func anyPresent(deps map[string]string, names []string) bool {
	for _, n := range names {
		if _, ok := deps[n]; ok {
			return true
		}
	}
	return false
}

func appendUnique(base []string, additions ...string) []string {
	seen := make(map[string]bool, len(base))
	for _, b := range base {
		seen[b] = true
	}
	out := append([]string{}, base...)
	for _, a := range additions {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
