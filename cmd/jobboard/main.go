// Package main is the entry point for the job board dashboard server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jobboard",
	Short: "Job board dashboard",
	Long: `Serves a dashboard over a scraped job catalog and keeps a per-job
application status (not-applied, applied, interviewing) in a local store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a yaml config file (default $CONFIG_FILE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
