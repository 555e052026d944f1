package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkoval/scholarcsv/internal/config"
	"github.com/mkoval/scholarcsv/internal/export"
	"github.com/mkoval/scholarcsv/internal/jobs"
	"github.com/mkoval/scholarcsv/internal/normalize"
	"github.com/mkoval/scholarcsv/internal/server"
)

var (
	serveConfigPath string
	servePort       int
	serveFixture    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts extraction jobs, streams their progress, and serves the CSV artifacts.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to YAML config file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveFixture, "fixture", "", "JSONL fixture file to serve instead of the live source")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if servePort > 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source, closeSource, err := buildSource(cfg, serveFixture)
	if err != nil {
		return err
	}
	defer closeSource()

	manager := jobs.NewManager(
		source,
		normalize.New(cfg.ExtraVenues...),
		export.NewBuilder(cfg.ArtifactDir),
		jobs.Options{
			MaxConcurrent: cfg.MaxConcurrentJobs,
			JobTTL:        cfg.JobTTL,
		},
	)

	srv := server.New(server.Config{Port: cfg.Port}, manager)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
