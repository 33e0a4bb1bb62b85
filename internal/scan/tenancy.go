package scan

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/routewarden/routewarden/internal/depscan"
)

// schemaFileCandidates are the standard locations a Prisma or Drizzle
// schema lives at, tried in order (spec §4.8 TENANCY-SCOPE-MISSING:
// "the schema file", standard locations left to the implementation).
var schemaFileCandidates = []string{
	"prisma/schema.prisma",
	"src/prisma/schema.prisma",
	"drizzle/schema.ts",
	"src/drizzle/schema.ts",
	"db/schema.ts",
	"src/db/schema.ts",
	"server/db/schema.ts",
	"src/server/db/schema.ts",
}

// ormBootstrapCandidates are the standard locations an ORM client is
// constructed at, where a global `$use`/`$extends` tenancy guard would live.
var ormBootstrapCandidates = []string{
	"lib/prisma.ts", "src/lib/prisma.ts",
	"lib/db.ts", "src/lib/db.ts",
	"server/db.ts", "src/server/db.ts",
	"db.ts", "src/db.ts",
}

var bootstrapGuardRe = regexp.MustCompile(`\$(?:use|extends)\s*\(`)

// tenancySignals computes the three gate conditions EvaluateTenancyScopeMissing
// needs: whether an ORM is present, whether the schema declares a tenant
// field, and whether a bootstrap file already globally scopes every query.
func tenancySignals(root string, bitmap depscan.Bitmap, orgFieldNames []string) (ormPresent, schemaHasTenantField, bootstrapSafe bool) {
	ormPresent = bitmap.HasAnyORM()
	if !ormPresent {
		return false, false, false
	}

	schemaHasTenantField = fileContainsAny(root, schemaFileCandidates, orgFieldNames)
	bootstrapSafe = anyBootstrapGuardsTenancy(root, orgFieldNames)
	return ormPresent, schemaHasTenantField, bootstrapSafe
}

func fileContainsAny(root string, candidates, needles []string) bool {
	for _, rel := range candidates {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		if containsAnyCaseInsensitive(string(data), needles) {
			return true
		}
	}
	return false
}

func anyBootstrapGuardsTenancy(root string, orgFieldNames []string) bool {
	for _, rel := range ormBootstrapCandidates {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		src := string(data)
		for _, loc := range bootstrapGuardRe.FindAllStringIndex(src, -1) {
			end := loc[1] + 200
			if end > len(src) {
				end = len(src)
			}
			if containsAnyCaseInsensitive(src[loc[0]:end], orgFieldNames) {
				return true
			}
		}
	}
	return false
}

func containsAnyCaseInsensitive(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
