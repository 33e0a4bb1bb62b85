package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "protoscan",
	Short: "Static analysis for missing security primitives on Next.js mutation surfaces",
	Long: `protoscan scans a Next.js project for route handlers, server actions, and
typed-RPC procedures that can mutate state, and flags the ones missing an
auth boundary, rate limiting, tenant-scoped database access, or input
validation.

  protoscan scan                 run a scan and print a pretty report
  protoscan scan --format json   emit the full ScanResult as JSON
  protoscan scan --ci            exit non-zero when a configured gate fails
  protoscan waiver add           suppress a finding with a reason
  protoscan baseline save        record the current findings as a baseline
  protoscan search <query>       full-text search over indexed findings
  protoscan watch                rescan on every source change`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// outputJSON outputs data as JSON
func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// exitError prints an error message and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// exitErrorJSON outputs an error in JSON format if --json flag is set
func exitErrorJSON(err error) {
	if jsonOutput {
		outputJSON(map[string]string{"error": err.Error()})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
