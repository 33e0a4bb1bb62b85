package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/routewarden/routewarden/internal/config"
	"github.com/routewarden/routewarden/internal/finding"
	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/project"
	"github.com/routewarden/routewarden/internal/report"
	"github.com/routewarden/routewarden/internal/scan"
	"github.com/routewarden/routewarden/internal/searchindex"
)

var (
	scanFormat       string
	scanCI           bool
	scanBaseline     bool
	scanBaselinePath string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a project for missing security primitives",
	Long: `Run the full analysis pipeline against a Next.js project: project
detection, dependency scanning, middleware analysis, endpoint discovery,
wrapper-protection inference, rule evaluation, waiver application, and
scoring.

With --ci, the exit code reflects the configured CI gate (spec's score
floor, severity/confidence thresholds, and new-finding caps) instead of
always succeeding.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		root, err := filepath.Abs(root)
		if err != nil {
			exitError("failed to resolve path: %v", err)
		}

		cfg, err := config.Load(root)
		if err != nil {
			exitError("failed to load config: %v", err)
		}

		p := &project.Project{RootPath: root}
		if err := p.EnsureState(); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		baselinePath := scanBaselinePath
		if baselinePath == "" {
			baselinePath = filepath.Join(root, ".protoscan", "baseline.json")
		}

		var onProgress func(string)
		if verbose {
			onProgress = func(step string) {
				fmt.Fprintf(os.Stderr, "==> %s\n", step)
			}
		}

		result, diff, err := scan.RunAndBaseline(context.Background(), root, cfg, baselinePath, scanBaseline, onProgress)
		if err != nil {
			exitErrorJSON(err)
			return
		}

		if idx, ierr := searchindex.Open(p.RootPath); ierr == nil {
			_ = idx.Reindex(result.Active)
			_ = idx.Close()
		}

		if err := renderScanResult(*result, diff); err != nil {
			exitError("%v", err)
		}

		if scanCI {
			if failed, reason := evaluateGates(*result, diff, cfg.CI); failed {
				fmt.Fprintf(os.Stderr, "gate failed: %s\n", reason)
				os.Exit(1)
			}
		}
	},
}

func renderScanResult(result finding.ScanResult, diff *model.BaselineDiff) error {
	switch scanFormat {
	case "json":
		data, err := report.JSON(result)
		if err != nil {
			return fmt.Errorf("failed to render JSON: %w", err)
		}
		fmt.Println(string(data))
	case "sarif":
		data, err := report.SARIF(result, "protoscan", scan.ToolVersion)
		if err != nil {
			return fmt.Errorf("failed to render SARIF: %w", err)
		}
		fmt.Println(string(data))
	default:
		fmt.Print(report.Pretty(result))
		if diff != nil {
			fmt.Printf("\n%d new finding(s), %d resolved since baseline (score delta %+d)\n",
				len(diff.NewFindings), len(diff.ResolvedKeys), diff.ScoreDelta)
		}
	}
	return nil
}

// evaluateGates applies spec's CI gate: a score floor, a severity/confidence
// threshold on any active finding, and caps on new criticals/highs relative
// to the prior baseline.
func evaluateGates(result finding.ScanResult, diff *model.BaselineDiff, ci model.CIConfig) (bool, string) {
	if ci.MinScore > 0 && result.Score < ci.MinScore {
		return true, fmt.Sprintf("score %d below minimum %d", result.Score, ci.MinScore)
	}

	for _, f := range result.Active {
		if ci.FailOn != "" && model.SeverityRank(f.Severity) >= model.SeverityRank(ci.FailOn) &&
			model.ConfidenceRank(f.Confidence) >= model.ConfidenceRank(ci.MinConfidence) {
			return true, fmt.Sprintf("%s at %s/%s meets failOn threshold (%s in %s)", f.RuleID, f.Severity, f.Confidence, f.RuleID, f.File)
		}
	}

	if diff != nil {
		bySeverity := make(map[string]model.Severity, len(result.Active))
		for _, f := range result.Active {
			bySeverity[f.Key()] = f.Severity
		}
		var newCritical, newHigh int
		for _, key := range diff.NewFindings {
			switch bySeverity[key] {
			case model.SeverityCritical:
				newCritical++
			case model.SeverityHigh:
				newHigh++
			}
		}
		if ci.MaxNewCritical > 0 && newCritical > ci.MaxNewCritical {
			return true, fmt.Sprintf("%d new critical finding(s) exceeds cap %d", newCritical, ci.MaxNewCritical)
		}
		if ci.MaxNewHigh != nil && newHigh > *ci.MaxNewHigh {
			return true, fmt.Sprintf("%d new high finding(s) exceeds cap %d", newHigh, *ci.MaxNewHigh)
		}
	}

	return false, ""
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "pretty", "output format: pretty, json, sarif")
	scanCmd.Flags().BoolVar(&scanCI, "ci", false, "exit non-zero when a configured gate fails")
	scanCmd.Flags().BoolVar(&scanBaseline, "save-baseline", false, "write the current findings as the new baseline")
	scanCmd.Flags().StringVar(&scanBaselinePath, "baseline", "", "baseline file path (default <root>/.protoscan/baseline.json)")
	rootCmd.AddCommand(scanCmd)
}
