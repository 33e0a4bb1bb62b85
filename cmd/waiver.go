package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/routewarden/routewarden/internal/model"
	"github.com/routewarden/routewarden/internal/waiver"
)

var waiverPath string

// waiverCmd represents the waiver command
var waiverCmd = &cobra.Command{
	Use:   "waiver",
	Short: "Manage finding waivers",
	Long:  `Add, list, and remove file-scoped suppressions for specific findings.`,
}

var waiverAddCmd = &cobra.Command{
	Use:   "add <rule-id> <file>",
	Short: "Waive a finding",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			exitError("a --reason is required for every waiver (spec's audit trail)")
		}
		expiry, _ := cmd.Flags().GetString("expiry")

		path := resolveWaiversPath()
		waivers, err := waiver.Load(path)
		if err != nil {
			exitError("%v", err)
		}

		w := model.Waiver{
			RuleID:    model.RuleID(args[0]),
			File:      args[1],
			Reason:    reason,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if expiry != "" {
			w.Expiry = &expiry
		}
		waivers = append(waivers, w)

		if err := waiver.Save(path, waivers); err != nil {
			exitError("%v", err)
		}

		if jsonOutput {
			outputJSON(w)
		} else {
			fmt.Printf("waived %s on %s\n", w.RuleID, w.File)
		}
	},
}

var waiverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active waivers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveWaiversPath()
		waivers, err := waiver.Load(path)
		if err != nil {
			exitError("%v", err)
		}

		if jsonOutput {
			outputJSON(waivers)
			return
		}
		if len(waivers) == 0 {
			fmt.Println("no waivers recorded")
			return
		}
		for _, w := range waivers {
			fmt.Printf("%s  %s  %s\n", w.RuleID, w.File, w.Reason)
		}
	},
}

var waiverRemoveCmd = &cobra.Command{
	Use:   "remove <rule-id> <file>",
	Short: "Remove a waiver",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveWaiversPath()
		waivers, err := waiver.Load(path)
		if err != nil {
			exitError("%v", err)
		}

		var kept []model.Waiver
		removed := false
		for _, w := range waivers {
			if string(w.RuleID) == args[0] && w.File == args[1] {
				removed = true
				continue
			}
			kept = append(kept, w)
		}
		if !removed {
			exitError("no waiver found for %s on %s", args[0], args[1])
		}

		if err := waiver.Save(path, kept); err != nil {
			exitError("%v", err)
		}
		fmt.Printf("removed waiver for %s on %s\n", args[0], args[1])
	},
}

func resolveWaiversPath() string {
	if waiverPath != "" {
		return waiverPath
	}
	root, err := filepath.Abs(".")
	if err != nil {
		exitError("failed to resolve path: %v", err)
	}
	return filepath.Join(root, ".protoscan", "waivers.json")
}

func init() {
	waiverCmd.PersistentFlags().StringVar(&waiverPath, "file", "", "waiver file path (default <cwd>/.protoscan/waivers.json)")
	waiverAddCmd.Flags().String("reason", "", "reason for the waiver (required)")
	waiverAddCmd.Flags().String("expiry", "", "ISO 8601 expiry date, e.g. 2026-12-31")

	waiverCmd.AddCommand(waiverAddCmd, waiverListCmd, waiverRemoveCmd)
	rootCmd.AddCommand(waiverCmd)
}
