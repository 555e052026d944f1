// Package main provides the entry point for the scholar citation export
// service and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scholarcsv",
	Short: "Scholar citation extraction and CSV export",
	Long:  "scholarcsv fetches per-publication citation time series for research authors and exports them as CSV tables on a normalized per-entity year axis.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
