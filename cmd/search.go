package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/routewarden/routewarden/internal/project"
	"github.com/routewarden/routewarden/internal/searchindex"
)

var searchLimit int

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the findings from the last scan",
	Long: `Searches the Bleve index built by the most recent 'protoscan scan' run.
Run 'protoscan scan' at least once before searching; the index is kept at
<root>/.protoscan/search/findings.bleve.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := filepath.Abs(".")
		if err != nil {
			exitError("failed to resolve path: %v", err)
		}
		p := &project.Project{RootPath: root}
		if !p.HasState() {
			exitError("no findings index found; run 'protoscan scan' first")
		}

		idx, err := searchindex.Open(p.RootPath)
		if err != nil {
			exitError("failed to open findings index: %v", err)
		}
		defer idx.Close()

		results, err := idx.Search(args[0], searchLimit)
		if err != nil {
			exitError("search failed: %v", err)
		}

		if jsonOutput {
			outputJSON(results)
			return
		}
		if len(results) == 0 {
			fmt.Println("no matches")
			return
		}
		for _, r := range results {
			fmt.Printf("[%.2f] %s  %s\n", r.Score, r.RuleID, r.File)
			if r.Snippet != "" {
				fmt.Printf("  %s\n", r.Snippet)
			}
		}
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
