package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "standlog",
	Short: "Standlog - behavioral analytics instrumentation core",
	Long: `Standlog is the headless core of a behavioral analytics tracker:
identity management, event capture, batched delivery, funnel analysis
and rule-based persona classification, as a single binary.

Attach a signal source, point it at a collector, and it does the rest.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Standlog version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
