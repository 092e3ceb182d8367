package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/enrich"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/reconcile"
	"github.com/franz/movie-checklist/internal/search"
	"github.com/franz/movie-checklist/internal/util"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog for movies and series",
	Long: `Search the catalog by title. Results already in your library are
marked with their list and rating.

Use --add with a result id to put it on your planned list. Its full
details (genres) are fetched right after.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("type", "all", "Limit results to movie, series or all")
	searchCmd.Flags().Int("page", 1, "Result page")
	searchCmd.Flags().Int64("add", 0, "Add the result with this id to the planned list")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")
	typeFlag, _ := cmd.Flags().GetString("type")
	pageNum, _ := cmd.Flags().GetInt("page")
	addID, _ := cmd.Flags().GetInt64("add")

	filter, err := parseTypeFilter(typeFlag)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	enricher := enrich.New(a.cache, a.store, a.events)
	c := search.New(ctx, a.store, a.cache, enricher, search.Options{
		Debounce:       time.Millisecond,
		MinQueryLength: cfg.Search.MinQueryLength,
		Events:         a.events,
	})
	defer c.Close()

	var page *catalog.SearchPage
	if pageNum > 1 {
		page, err = a.cache.SearchMulti(ctx, query, pageNum)
		if err != nil {
			msg, _ := catalog.SearchMessage(err)
			return fmt.Errorf("%s: %w", msg, err)
		}
		page = filterResults(page, filter)
	} else {
		c.SetQuery(query)
		c.SetMediaTypeFilter(filter)
		page, err = awaitResults(ctx, c)
		if err != nil {
			return err
		}
	}

	// Badges need the first library snapshot
	select {
	case <-c.LibraryStatuses():
	case <-ctx.Done():
		return ctx.Err()
	}

	if addID != 0 {
		return addResult(ctx, c, page, addID)
	}

	printResults(c, query, page)
	return nil
}

// awaitResults waits for the search to settle
func awaitResults(ctx context.Context, c *search.Controller) (*catalog.SearchPage, error) {
	for {
		select {
		case st := <-c.Results():
			if st.IsLoading() {
				continue
			}
			if st.IsError() {
				if code, ok := st.Code(); ok && code != 0 {
					return nil, fmt.Errorf("%s %d", st.Message(), code)
				}
				return nil, fmt.Errorf("%s", st.Message())
			}
			page, _ := st.Data()
			return page, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func addResult(ctx context.Context, c *search.Controller, page *catalog.SearchPage, id int64) error {
	for _, r := range page.Results {
		if r.ID != id {
			continue
		}
		if err := c.AddToPlanned(ctx, r); err != nil {
			return err
		}
		util.SuccessLog("Added '%s' to your planned list", reconcile.MapSearchResult(r, library.StatePlanned).Title)
		return nil
	}
	return fmt.Errorf("%w: id %d is not on this result page", util.ErrNotFound, id)
}

func printResults(c *search.Controller, query string, page *catalog.SearchPage) {
	if len(page.Results) == 0 {
		util.InfoLog("No results for '%s'", query)
		return
	}

	width := util.GetTerminalWidth()
	util.InfoLog("Results for '%s' (page %d of %d, %d total):", query, page.Page, max(page.TotalPages, 1), page.TotalResults)
	for _, r := range page.Results {
		rec := reconcile.MapSearchResult(r, library.StateNone)

		badge := ""
		if o := c.Status(r.ID); o.InLibrary() {
			badge = fmt.Sprintf(" [%s%s]", o.State(), withSpace(stars(o)))
		}

		year := ""
		if y := rec.Year(); y != "" {
			year = fmt.Sprintf(" (%s)", y)
		}

		line := fmt.Sprintf("  %8d  %-6s %s%s%s", r.ID, rec.MediaType, rec.Title, year, badge)
		util.InfoLog("%s", util.Truncate(line, width))
	}
}

func parseTypeFilter(s string) (library.MediaType, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	return library.ParseMediaType(s)
}

func filterResults(page *catalog.SearchPage, mt library.MediaType) *catalog.SearchPage {
	if mt == "" {
		return page
	}
	out := *page
	out.Results = nil
	for _, r := range page.Results {
		if reconcile.ResolveMediaType(r) == mt {
			out.Results = append(out.Results, r)
		}
	}
	return &out
}

func withSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}
