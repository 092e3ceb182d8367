package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report of your library",
	Long: `Generate a library summary in Markdown format.

The report includes:
- Planned and watched counts, movies vs. series
- Rating distribution and average
- Most common genres
- Recently watched titles
- Top errors from the event logs

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().StringSlice("event-log", nil, "Event log files to include (default: all in --events-dir)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Database: %s", cfg.DB)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	eventLogs, _ := cmd.Flags().GetStringSlice("event-log")
	if len(eventLogs) == 0 && cfg.EventsDir != "" {
		eventLogs, _ = filepath.Glob(filepath.Join(cfg.EventsDir, "events-*.jsonl"))
		sort.Strings(eventLogs)
	}

	util.InfoLog("Analyzing library...")
	summary, err := report.GenerateSummaryReport(ctx, a.store, eventLogs)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.DatabasePath = cfg.DB

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join("artifacts", "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Planned: %d", summary.Planned)
	util.InfoLog("  Watched: %d", summary.Watched)
	if summary.Rated > 0 {
		util.InfoLog("  Average rating: %.1f from %d ratings", summary.AverageRating, summary.Rated)
	}
	if summary.NeedsEnrichment > 0 {
		util.WarnLog("  Missing details: %d (run 'mcl enrich')", summary.NeedsEnrichment)
	}

	return nil
}
