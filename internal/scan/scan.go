// Package scan wires the project detector, dependency scanner, middleware
// analyzer, endpoint discovery (including the typed-RPC sub-pipeline),
// wrapper index, protection computer, rule engine, waiver applicator, and
// scorer into one scan invocation (spec §2's data-flow, §5's determinism).
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/routewarden/routewarden/internal/baseline"
	"github.com/routewarden/routewarden/internal/cache"
	"github.com/routewarden/routewarden/internal/depscan"
	"github.com/routewarden/routewarden/internal/endpoint"
	"github.com/routewarden/routewarden/internal/endpoint/rpc"
	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/middleware"
	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/project"
	"github.com/routewarden/routewarden/internal/protection"
	"github.com/routewarden/routewarden/internal/resolver"
	"github.com/routewarden/routewarden/internal/rules"
	"github.com/routewarden/routewarden/internal/scoring"
	"github.com/routewarden/routewarden/internal/tsconfig"
	"github.com/routewarden/routewarden/internal/waiver"
	"github.com/routewarden/routewarden/internal/wrapper"
)

// ToolVersion is reported in every ScanResult and Baseline.
const ToolVersion = "0.1.0"

// IndexVersion tags the shape of the derived index this build produces;
// bump it whenever a change would make a prior baseline's keys unreliable.
const IndexVersion = "1"

// maxWorkers bounds the protection-computation worker pool. Fixed and
// small: the per-route work is already cheap regex scanning, so the
// ceiling exists only to bound peak file-descriptor usage on very large
// trees, not for throughput.
const maxWorkers = 8

// Run executes one scan of root under cfg. onProgress, if non-nil, is
// called at each pipeline stage boundary (spec §5). The returned
// ScanResult is deterministic for a fixed (root, cfg) pair regardless of
// worker-pool scheduling (spec §8 invariant 1).
func Run(ctx context.Context, root string, cfg model.Config, onProgress func(step string)) (*finding.ScanResult, error) {
	progress := func(step string) {
		if onProgress != nil {
			onProgress(step)
		}
	}

	progress("detect")
	detect := project.Detect(root)
	if !detect.OK {
		return nil, fmt.Errorf("project detection failed: %s", detect.Reason)
	}

	progress("depscan")
	depResult, err := depscan.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("dependency scan failed: %w", err)
	}
	hints := depscan.MergeHints(depResult.Hints, cfg.HintsConfig)

	progress("middleware")
	mw := middleware.Analyze(root)

	appDir := filepath.Join(root, detect.AppDir)

	progress("endpoints")
	routes, skippedRoutes := endpoint.DiscoverRoutes(appDir)
	actions, skippedActions := endpoint.DiscoverServerActions(appDir)

	ts := tsconfig.Load(filepath.Join(root, "tsconfig.json"), os.ReadFile)
	r := resolver.New(root, ts)

	var procedures []*model.RPCProcedure
	if depResult.Bitmap.RPC {
		if proxyRoute := rpc.FindProxyRoute(routes); proxyRoute != nil {
			procedures = rpc.Discover(proxyRoute, r)
		}
	}

	progress("wrapper")
	wrapperIndex := wrapper.BuildIndex(routes, r, hints.Auth.Functions, hints.RateLimit.Wrappers)

	progress("protection")
	hash := configHash(cfg)
	store, err := cache.Open(filepath.Join(root, ".protoscan", "cache", "cache.db"))
	if err != nil {
		store = nil // cache is never a correctness dependency; fall back to full recompute
	} else {
		defer store.Close()
	}
	computeProtection(routes, wrapperIndex, hints, mw, store, hash)

	progress("sources")
	sources, skippedSources := loadSources(routes, actions, procedures)
	includeFiles := resolveIncludeFiles(root, cfg, sources)
	ormPresent, schemaHasTenantField, tenancyBootstrapSafe := tenancySignals(root, depResult.Bitmap, hints.Tenancy.OrgFieldNames)

	rctx := rules.Context{
		Routes:     routes,
		Actions:    actions,
		Procedures: procedures,
		Wrappers:   wrapperIndex,
		Hints:      hints,
		Config:     cfg,
		Sources:    sources,

		ORMPresent:           ormPresent,
		SchemaHasTenantField: schemaHasTenantField,
		TenancyBootstrapSafe: tenancyBootstrapSafe,
		IncludeFiles:         includeFiles,
	}

	progress("rules")
	findings := rules.Evaluate(rctx)

	progress("waivers")
	waiversPath := filepath.Join(root, cfg.WaiversFile)
	waivers, err := waiver.Load(waiversPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load waivers: %w", err)
	}
	active, waived := waiver.Apply(findings, waivers)

	progress("scoring")
	score := scoring.Compute(active, cfg.Scoring)

	var skipped []finding.SkippedFile
	for _, s := range skippedRoutes {
		skipped = append(skipped, finding.SkippedFile{File: s.File, Reason: s.Reason})
	}
	for _, s := range skippedActions {
		skipped = append(skipped, finding.SkippedFile{File: s.File, Reason: s.Reason})
	}
	skipped = append(skipped, skippedSources...)

	result := &finding.ScanResult{
		Version:      "1",
		ToolVersion:  ToolVersion,
		ConfigHash:   hash,
		IndexVersion: IndexVersion,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Framework:    project.FrameworkName,
		Dependencies: dependencyMap(depResult.Bitmap),
		Active:       active,
		Waived:       waived,
		Summary:      finding.CountBySeverity(active),
		Score:        score,
		Status:       finding.ScoreStatus(score),
		Skipped:      skipped,
	}
	return result, nil
}

// RunAndBaseline runs Run, then diffs the result's active findings against
// the baseline file at baselinePath (if one exists), writing an updated
// baseline when write is true.
func RunAndBaseline(ctx context.Context, root string, cfg model.Config, baselinePath string, write bool, onProgress func(string)) (*finding.ScanResult, *model.BaselineDiff, error) {
	result, err := Run(ctx, root, cfg, onProgress)
	if err != nil {
		return nil, nil, err
	}

	prior, err := baseline.Load(baselinePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load baseline: %w", err)
	}

	var diff *model.BaselineDiff
	if prior != nil {
		d := baseline.Diff(*prior, result.Active, result.Score)
		diff = &d
	}

	if write {
		next := baseline.FromScan(result.ToolVersion, result.ConfigHash, result.IndexVersion, result.Timestamp, result.Score, result.Active)
		if err := baseline.Save(baselinePath, next); err != nil {
			return nil, nil, fmt.Errorf("failed to save baseline: %w", err)
		}
	}

	return result, diff, nil
}

// computeProtection fills route.Protection for every route, bounded by a
// fixed-size worker pool. Each route owns its own output field, so
// scheduling order never affects the result (spec §8 invariant 1).
//
// When store is non-nil, a route's protection summary is memoized under a
// key combining its content hash with configHash, so an unchanged file
// under an unchanged config skips recomputation entirely (spec §4.12). A
// cache miss or a read/write failure always falls back to recomputing from
// source — the cache is never a correctness dependency.
func computeProtection(routes []*model.RouteHandler, wrapperIndex map[string]*model.WrapperAnalysis, hints model.Hints, mw middleware.Analysis, store *cache.Store, cfgHash string) {
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for _, route := range routes {
		wg.Add(1)
		sem <- struct{}{}
		go func(route *model.RouteHandler) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := os.ReadFile(route.File)
			if err != nil {
				return
			}
			src := string(data)

			if store != nil {
				key := cache.Hash([]byte(cfgHash + "\x00" + src))
				if payload, ok, err := store.Get(route.File, key); err == nil && ok {
					var summary model.ProtectionSummary
					if json.Unmarshal([]byte(payload), &summary) == nil {
						route.Protection = &summary
						return
					}
				}
			}

			protection.Compute(route, src, hints, wrapperIndex, mw)

			if store != nil && route.Protection != nil {
				if payload, err := json.Marshal(route.Protection); err == nil {
					key := cache.Hash([]byte(cfgHash + "\x00" + src))
					_ = store.Put(route.File, key, string(payload))
				}
			}
		}(route)
	}
	wg.Wait()
}

// loadSources reads every distinct endpoint file once into a (file ->
// content) map the rule engine scans from, so rules never perform their
// own I/O (spec §7).
func loadSources(routes []*model.RouteHandler, actions []*model.ServerAction, procedures []*model.RPCProcedure) (map[string]string, []finding.SkippedFile) {
	sources := make(map[string]string)
	var skipped []finding.SkippedFile

	read := func(file string) {
		if file == "" {
			return
		}
		if _, ok := sources[file]; ok {
			return
		}
		data, err := os.ReadFile(file)
		if err != nil {
			skipped = append(skipped, finding.SkippedFile{File: file, Reason: err.Error()})
			return
		}
		sources[file] = string(data)
	}

	for _, route := range routes {
		read(route.File)
	}
	for _, action := range actions {
		read(action.File)
	}
	for _, proc := range procedures {
		read(proc.File)
	}
	return sources, skipped
}

// configHash is the stable identity of a config's rule-affecting fields,
// carried in ScanResult/Baseline so a later run can tell whether severity
// caps or scoring overrides shifted since the baseline was taken.
func configHash(cfg model.Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dependencyMap(b depscan.Bitmap) map[string]bool {
	deps := make(map[string]bool, len(b.Auth)+len(b.RateLimit)+len(b.ORM)+1)
	for family, present := range b.Auth {
		deps["auth:"+family] = present
	}
	for family, present := range b.RateLimit {
		deps["rateLimit:"+family] = present
	}
	for family, present := range b.ORM {
		deps["orm:"+family] = present
	}
	deps["rpc"] = b.RPC
	return deps
}
