package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/lists"
	"github.com/franz/movie-checklist/internal/store"
	"github.com/franz/movie-checklist/internal/util"
)

var listCmd = &cobra.Command{
	Use:   "list [planned|watched|all]",
	Short: "List the titles in your library",
	Long: `List your planned or watched titles ordered by title.

Use --query to match part of a title and --type to limit the list to
movies or series.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"planned", "watched", "all"},
	RunE:      runList,
}

var moveCmd = &cobra.Command{
	Use:   "move <id> planned|watched",
	Short: "Move a title between your lists",
	Long: `Move a library title to the watched list (optionally rated with
--rating) or back to the planned list. Moving to planned clears the rating.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var rateCmd = &cobra.Command{
	Use:   "rate <id> <1-5>",
	Short: "Rate a watched title",
	Args:  cobra.ExactArgs(2),
	RunE:  runRate,
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a title from your planned list",
	Long: `Delete a planned title from the library. Watched titles have to be
moved back to planned first.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(listCmd, moveCmd, rateCmd, removeCmd)

	listCmd.Flags().String("query", "", "Only titles containing this text")
	listCmd.Flags().String("type", "all", "Limit to movie, series or all")

	moveCmd.Flags().Int("rating", 0, "Rating when moving to watched (1-5, 0 = unrated)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	which := "all"
	if len(args) == 1 {
		which = args[0]
	}
	var status library.State
	switch which {
	case "all":
		status = library.StateNone
	default:
		var err error
		status, err = library.ParseState(which)
		if err != nil {
			return err
		}
	}

	query, _ := cmd.Flags().GetString("query")
	typeFlag, _ := cmd.Flags().GetString("type")
	mediaType, err := parseTypeFilter(typeFlag)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c := lists.New(a.store, a.events)
	records, err := c.SearchLocal(ctx, store.Filter{Text: query, Status: status, MediaType: mediaType})
	if err != nil {
		return err
	}

	if len(records) == 0 {
		util.InfoLog("Nothing here yet. Find titles with 'mcl search'.")
		return nil
	}

	width := util.GetTerminalWidth()
	for _, rec := range records {
		line := fmt.Sprintf("  %8d  %-7s %-6s %s", rec.ID, rec.Ownership.State(), rec.MediaType, rec.Title)
		if y := rec.Year(); y != "" {
			line += fmt.Sprintf(" (%s)", y)
		}
		line += withSpace(stars(rec.Ownership))
		if !rec.AddedAt.IsZero() {
			line += "  · added " + humanize.Time(rec.AddedAt)
		}
		util.InfoLog("%s", util.Truncate(line, width))
	}
	util.InfoLog("")
	util.InfoLog("%d %s", len(records), plural(len(records), "title", "titles"))
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	target, err := library.ParseState(args[1])
	if err != nil {
		return err
	}
	if target == library.StateNone {
		return fmt.Errorf("move to planned or watched, not %q", args[1])
	}
	rating, _ := cmd.Flags().GetInt("rating")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.requireRecord(ctx, args[0])
	if err != nil {
		return err
	}

	c := lists.New(a.store, a.events)
	var moved library.Record
	switch target {
	case library.StateWatched:
		moved, err = c.MoveToWatched(ctx, *rec, library.Rating(rating))
	default:
		moved, err = c.MoveToPlanned(ctx, *rec)
	}
	if err != nil {
		return err
	}

	util.SuccessLog("'%s' is now %s%s", moved.Title, moved.Ownership.State(), withSpace(stars(moved.Ownership)))
	return nil
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rating, err := parseRating(args[1])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.requireRecord(ctx, args[0])
	if err != nil {
		return err
	}

	rated, err := lists.New(a.store, a.events).UpdateUserRating(ctx, *rec, rating)
	if err != nil {
		return err
	}

	util.SuccessLog("Rated '%s' %s", rated.Title, stars(rated.Ownership))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.requireRecord(ctx, args[0])
	if err != nil {
		return err
	}

	if err := lists.New(a.store, a.events).RemoveFromPlanned(ctx, *rec); err != nil {
		return err
	}

	util.SuccessLog("Removed '%s' from your planned list", rec.Title)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
