package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkoval/scholarcsv/internal/align"
	"github.com/mkoval/scholarcsv/internal/config"
	"github.com/mkoval/scholarcsv/internal/export"
	"github.com/mkoval/scholarcsv/internal/jobs"
	"github.com/mkoval/scholarcsv/internal/normalize"
	"github.com/mkoval/scholarcsv/internal/observability"
)

var (
	exportConfigPath string
	exportAuthors    []string
	exportOutDir     string
	exportColumns    int
	exportFixture    string
	exportVerbose    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run one extraction job and write the CSV artifact",
	Long:  `Fetch the given author(s), align citation counts on the year axis, and write the CSV export. Progress is printed as it happens.`,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportConfigPath, "config", "", "Path to YAML config file")
	exportCmd.Flags().StringArrayVar(&exportAuthors, "author", nil, "Scholar ID or profile URL (repeatable)")
	exportCmd.Flags().StringVar(&exportOutDir, "out", "", "Artifact directory (overrides config)")
	exportCmd.Flags().IntVar(&exportColumns, "columns", 0, "Explicit year-column count for single-author exports (0 = automatic)")
	exportCmd.Flags().StringVar(&exportFixture, "fixture", "", "JSONL fixture file to use instead of the live source")
	exportCmd.Flags().BoolVar(&exportVerbose, "verbose", false, "Print per-author summaries")
	_ = exportCmd.MarkFlagRequired("author")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(exportConfigPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if exportOutDir != "" {
		cfg.ArtifactDir = exportOutDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source, closeSource, err := buildSource(cfg, exportFixture)
	if err != nil {
		return err
	}
	defer closeSource()

	manager := jobs.NewManager(
		source,
		normalize.New(cfg.ExtraVenues...),
		export.NewBuilder(cfg.ArtifactDir),
		jobs.Options{MaxConcurrent: 1, JobTTL: cfg.JobTTL},
	)
	defer manager.Close()

	jobID, err := manager.Submit(jobs.Request{
		AuthorIDs:   exportAuthors,
		YearColumns: exportColumns,
	})
	if err != nil {
		return err
	}

	events, err := manager.Subscribe(context.Background(), jobID)
	if err != nil {
		return err
	}

	var artifact string
	for ev := range events {
		switch ev.Type {
		case jobs.EventLog:
			fmt.Println(ev.Text)
		case jobs.EventDone:
			artifact = ev.Artifact
		case jobs.EventError:
			return fmt.Errorf("job failed: %s", ev.Text)
		}
	}

	if exportVerbose {
		printer := observability.NewPrinter(os.Stdout)
		if snap, err := manager.Snapshot(jobID); err == nil {
			for i := range snap.Authors {
				printer.PrintAuthorSummary(&snap.Authors[i])
				printer.PrintTopPublications(align.RankByCitations(snap.Authors[i].Publications))
			}
		}
	}

	fmt.Printf("Artifact written to %s\n", artifact)
	return nil
}
