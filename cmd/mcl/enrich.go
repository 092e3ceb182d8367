package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/enrich"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch full details for titles added from search",
	Long: `Fetch catalog details for every library title without genres.

Titles added from search results only carry what the result list had.
This command looks each of them up once and fills in genres and the
other catalog fields. Your status and rating are never changed.

An interrupted run can be continued with --resume.`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().Bool("resume", false, "Continue an interrupted run")
	enrichCmd.Flags().Int("limit", 0, "Stop after this many titles (0 = all)")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resume, _ := cmd.Flags().GetBool("resume")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	util.InfoLog("=== Enriching Library ===")
	util.InfoLog("Database: %s", cfg.DB)

	// Check if stdout is a terminal (disable progress bar if piped/redirected)
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Enriching"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("titles"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	opts := enrich.RunOptions{
		Resume: resume,
		Limit:  limit,
		OnProgress: func(done, total int, rec library.Record, err error) {
			if bar != nil {
				bar.ChangeMax(total)
				bar.Set(done)
			} else if done%25 == 0 || done == total {
				util.InfoLog("Progress: %d/%d titles", done, total)
			}
		},
	}

	start := time.Now()
	stats, err := enrich.New(a.cache, a.store, a.events).Run(ctx, a.store, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			util.WarnLog("Interrupted. Run 'mcl enrich --resume' to continue.")
		}
		return err
	}

	util.InfoLog("")
	if stats.Total == 0 {
		util.SuccessLog("Nothing to do, every title has its details.")
		return nil
	}

	util.SuccessLog("Enrichment complete in %s", time.Since(start).Round(time.Millisecond))
	util.InfoLog("  Enriched:  %d", stats.Enriched)
	if stats.Unchanged > 0 {
		util.InfoLog("  No genres in catalog: %d", stats.Unchanged)
	}
	if stats.Removed > 0 {
		util.InfoLog("  Removed meanwhile: %d", stats.Removed)
	}
	if stats.Failed > 0 {
		util.WarnLog("  Failed:    %d (run again later)", stats.Failed)
	}

	return nil
}
