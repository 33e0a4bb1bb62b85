package searchindex

import (
	"testing"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

func TestReindexAndSearch(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer idx.Close()

	findings := []finding.Finding{
		{RuleID: model.RuleAuthBoundaryMissing, File: "app/api/a/route.ts", Message: "missing auth boundary on create"},
		{RuleID: model.RuleRateLimitMissing, File: "app/api/b/route.ts", Message: "missing rate limit on proxy fetch"},
	}

	if err := idx.Reindex(findings); err != nil {
		t.Fatalf("reindex failed: %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("doc count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 docs, got %d", count)
	}

	results, err := idx.Search("auth boundary", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].RuleID != string(model.RuleAuthBoundaryMissing) {
		t.Errorf("expected 1 match for auth finding, got %+v", results)
	}
}

func TestSearchNoMatches(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer idx.Close()

	if err := idx.Reindex([]finding.Finding{{RuleID: model.RuleTenancyScopeMissing, File: "a.ts", Message: "tenant scope"}}); err != nil {
		t.Fatalf("reindex failed: %v", err)
	}

	results, err := idx.Search("nonexistentxyz", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches, got %+v", results)
	}
}
