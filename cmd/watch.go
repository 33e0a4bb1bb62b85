package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/routewarden/routewarden/internal/config"
	"github.com/routewarden/routewarden/internal/fswatch"
	"github.com/routewarden/routewarden/internal/scan"
	"github.com/routewarden/routewarden/internal/searchindex"
)

var watchDebounce time.Duration

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rescan on every source change",
	Long: `Watches the project tree and reruns the scan whenever a batch of
source-file changes settles (spec's watch mode, an added domain-stack
component). Press Ctrl+C to stop.`,
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

		runOnce := func(reason string) {
			fmt.Printf("--- rescanning (%s) ---\n", reason)
			cfg, err := config.Load(root)
			if err != nil {
				fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
				return
			}
			result, err := scan.Run(context.Background(), root, cfg, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
				return
			}
			if idx, ierr := searchindex.Open(root); ierr == nil {
				_ = idx.Reindex(result.Active)
				_ = idx.Close()
			}
			if err := renderScanResult(*result, nil); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}

		runOnce("initial")

		w := fswatch.New(root, watchDebounce, func(changed []string) {
			runOnce(fmt.Sprintf("%d file(s) changed", len(changed)))
		})
		if err := w.Start(); err != nil {
			exitError("failed to start watcher: %v", err)
		}
		defer w.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		fmt.Println("stopping watch")
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "debounce window for batching changes (default 500ms)")
	rootCmd.AddCommand(watchCmd)
}
