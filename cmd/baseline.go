package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/routewarden/routewarden/internal/config"
	"github.com/routewarden/routewarden/internal/scan"
)

var baselinePathFlag string

// baselineCmd represents the baseline command
var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage scan baselines",
	Long:  `Record or diff a baseline snapshot of active findings (spec's baseline file).`,
}

var baselineSaveCmd = &cobra.Command{
	Use:   "save [path]",
	Short: "Run a scan and record its active findings as the new baseline",
	Args:  cobra.MaximumNArgs(1),
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

		path := resolveBaselinePath(root)
		result, _, err := scan.RunAndBaseline(context.Background(), root, cfg, path, true, nil)
		if err != nil {
			exitErrorJSON(err)
			return
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"path": path, "findingCount": len(result.Active), "score": result.Score})
			return
		}
		fmt.Printf("baseline written to %s (%d finding(s), score %d)\n", path, len(result.Active), result.Score)
	},
}

var baselineDiffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Run a scan and print its diff against the stored baseline without updating it",
	Args:  cobra.MaximumNArgs(1),
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

		path := resolveBaselinePath(root)
		_, diff, err := scan.RunAndBaseline(context.Background(), root, cfg, path, false, nil)
		if err != nil {
			exitErrorJSON(err)
			return
		}
		if diff == nil {
			fmt.Println("no baseline recorded yet")
			return
		}

		if jsonOutput {
			outputJSON(diff)
			return
		}
		fmt.Printf("%d new finding(s), %d resolved (score delta %+d)\n",
			len(diff.NewFindings), len(diff.ResolvedKeys), diff.ScoreDelta)
		for _, key := range diff.NewFindings {
			fmt.Printf("  + %s\n", key)
		}
		for _, key := range diff.ResolvedKeys {
			fmt.Printf("  - %s\n", key)
		}
	},
}

func resolveBaselinePath(root string) string {
	if baselinePathFlag != "" {
		return baselinePathFlag
	}
	return filepath.Join(root, ".protoscan", "baseline.json")
}

func init() {
	baselineCmd.PersistentFlags().StringVar(&baselinePathFlag, "file", "", "baseline file path (default <root>/.protoscan/baseline.json)")
	baselineCmd.AddCommand(baselineSaveCmd, baselineDiffCmd)
	rootCmd.AddCommand(baselineCmd)
}
