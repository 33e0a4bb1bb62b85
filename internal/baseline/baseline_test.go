package baseline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
)

func TestDiffNewAndResolved(t *testing.T) {
	b := model.Baseline{
		Version:     1,
		Score:       85,
		FindingKeys: []string{"AUTH-BOUNDARY-MISSING::app/api/a/route.ts::10"},
	}
	current := []finding.Finding{
		{RuleID: model.RuleAuthBoundaryMissing, File: "app/api/b/route.ts", Line: 5},
	}

	diff := Diff(b, current, 85)

	if len(diff.NewFindings) != 1 || diff.NewFindings[0] != current[0].Key() {
		t.Errorf("expected new finding for b route, got %+v", diff.NewFindings)
	}
	if len(diff.ResolvedKeys) != 1 || diff.ResolvedKeys[0] != "AUTH-BOUNDARY-MISSING::app/api/a/route.ts::10" {
		t.Errorf("expected resolved key for a route, got %+v", diff.ResolvedKeys)
	}
	if diff.ScoreDelta != 0 {
		t.Errorf("expected scoreDelta 0, got %d", diff.ScoreDelta)
	}
}

func TestDiffIdempotentOnUnchangedProject(t *testing.T) {
	f := finding.Finding{RuleID: model.RuleAuthBoundaryMissing, File: "app/api/a/route.ts", Line: 10}
	b := model.Baseline{Version: 1, Score: 85, FindingKeys: []string{f.Key()}}

	diff := Diff(b, []finding.Finding{f}, 85)

	if len(diff.NewFindings) != 0 {
		t.Errorf("expected no new findings, got %+v", diff.NewFindings)
	}
	if len(diff.ResolvedKeys) != 0 {
		t.Errorf("expected no resolved keys, got %+v", diff.ResolvedKeys)
	}
	if diff.ScoreDelta != 0 {
		t.Errorf("expected scoreDelta 0, got %d", diff.ScoreDelta)
	}
}

func TestDiffScoreDelta(t *testing.T) {
	b := model.Baseline{Version: 1, Score: 100, FindingKeys: nil}
	diff := Diff(b, nil, 85)
	if diff.ScoreDelta != -15 {
		t.Errorf("expected scoreDelta -15, got %d", diff.ScoreDelta)
	}
}

func TestRoundTripBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	active := []finding.Finding{
		{RuleID: model.RuleAuthBoundaryMissing, File: "app/api/a/route.ts", Line: 10},
	}
	b := FromScan("1.0.0", "abc123", "v1", "2026-07-30T00:00:00Z", 85, active)

	if err := Save(path, b); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got == nil || got.Score != 85 || len(got.FindingKeys) != 1 {
		t.Errorf("unexpected round-trip result: %+v", got)
	}
	if got.FindingKeys[0] != active[0].Key() {
		t.Errorf("expected key %s, got %s", active[0].Key(), got.FindingKeys[0])
	}
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestSaveWritesVersionedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	b := FromScan("1.0.0", "abc123", "v1", "2026-07-30T00:00:00Z", 100, nil)
	if err := Save(path, b); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty baseline file")
	}
	if !strings.Contains(string(data), `"version": 1`) {
		t.Errorf("expected versioned shape, got %s", data)
	}
}
