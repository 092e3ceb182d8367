package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/reconcile"
	"github.com/franz/movie-checklist/internal/session"
	"github.com/franz/movie-checklist/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a title and change its status",
	Long: `Display a movie or series by catalog id. Titles in your library are
shown from the local copy; others are fetched from the catalog.

Status changes:
  --plan       add a title that is not in the library to the planned list
  --watch N    mark watched with rating N (0 for unrated)
  --replan     move a watched title back to planned (clears the rating)
  --rate N     change the rating of a watched title

Use --follow to keep the view open and print every change, including
changes made by other mcl processes.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().String("type", "movie", "Media type: movie or series")
	showCmd.Flags().Bool("plan", false, "Add to the planned list")
	showCmd.Flags().Int("watch", 0, "Mark watched with this rating (0 = unrated)")
	showCmd.Flags().Bool("replan", false, "Move back to the planned list")
	showCmd.Flags().Int("rate", 0, "Change the rating (1-5)")
	showCmd.Flags().Bool("follow", false, "Keep running and print changes")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	typeFlag, _ := cmd.Flags().GetString("type")
	mediaType, err := library.ParseMediaType(typeFlag)
	if err != nil {
		return err
	}
	follow, _ := cmd.Flags().GetBool("follow")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := session.Open(ctx, a.store, a.cache, id, mediaType, session.Options{Events: a.events})
	defer s.Close()

	st, err := awaitSettled(ctx, s)
	if err != nil {
		return err
	}

	acted, err := applyShowActions(ctx, cmd, s)
	if err != nil {
		return err
	}
	if acted {
		st = s.State()
	}

	if !follow {
		// Give a running refresh the chance to finish before printing
		if rec, ok := st.Data(); ok && reconcile.NeedsEnrichment(*rec) {
			st = awaitRefresh(ctx, s, cfg.Catalog.Timeout)
		}
		printRecord(st)
		return nil
	}

	printRecord(st)

	go func() {
		if err := a.store.WatchExternalChanges(ctx); err != nil && ctx.Err() == nil {
			util.WarnLog("Not following changes from other processes: %v", err)
		}
	}()

	util.InfoLog("Following changes, press Ctrl+C to stop")
	for {
		select {
		case next, ok := <-s.States():
			if !ok {
				return nil
			}
			util.InfoLog("")
			printRecord(next)
		case err, ok := <-s.Errors():
			if ok {
				util.WarnLog("Refresh failed: %v", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// awaitSettled waits for the first state that is not Loading
func awaitSettled(ctx context.Context, s *session.Session) (session.State, error) {
	for {
		select {
		case st, ok := <-s.States():
			if !ok {
				return st, session.ErrClosed
			}
			if st.IsLoading() {
				continue
			}
			if st.IsError() {
				if code, ok := st.Code(); ok && code != 0 {
					return st, fmt.Errorf("%s %d", st.Message(), code)
				}
				return st, fmt.Errorf("%s", st.Message())
			}
			return st, nil
		case <-ctx.Done():
			return session.State{}, ctx.Err()
		}
	}
}

// awaitRefresh waits for the session to publish refreshed details, a
// refresh failure, or the timeout, and returns the state to show
func awaitRefresh(ctx context.Context, s *session.Session, timeout time.Duration) session.State {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case st, ok := <-s.States():
			if !ok {
				return s.State()
			}
			if rec, ok := st.Data(); ok && rec != nil && !reconcile.NeedsEnrichment(*rec) {
				return st
			}
		case err, ok := <-s.Errors():
			if !ok {
				return s.State()
			}
			util.WarnLog("Could not refresh details: %v", err)
			return s.State()
		case <-timer.C:
			return s.State()
		case <-ctx.Done():
			return s.State()
		}
	}
}

func applyShowActions(ctx context.Context, cmd *cobra.Command, s *session.Session) (bool, error) {
	acted := false
	flags := cmd.Flags()

	if plan, _ := flags.GetBool("plan"); plan {
		if err := s.AddToPlanned(ctx); err != nil {
			return acted, err
		}
		acted = true
	}
	if flags.Changed("watch") {
		n, _ := flags.GetInt("watch")
		if err := s.MarkWatched(ctx, library.Rating(n)); err != nil {
			return acted, err
		}
		acted = true
	}
	if replan, _ := flags.GetBool("replan"); replan {
		if err := s.MarkPlanned(ctx); err != nil {
			return acted, err
		}
		acted = true
	}
	if flags.Changed("rate") {
		n, _ := flags.GetInt("rate")
		if err := s.UpdateRating(ctx, library.Rating(n)); err != nil {
			return acted, err
		}
		acted = true
	}

	return acted, nil
}

func printRecord(st session.State) {
	rec, ok := st.Data()
	if !ok || rec == nil {
		util.InfoLog("%s", st)
		return
	}

	title := rec.Title
	if y := rec.Year(); y != "" {
		title = fmt.Sprintf("%s (%s)", title, y)
	}
	util.InfoLog("=== %s ===", title)
	util.InfoLog("Catalog id: %d (%s)", rec.ID, rec.MediaType)

	status := "not in library"
	if rec.Ownership.InLibrary() {
		status = rec.Ownership.State().String() + withSpace(stars(rec.Ownership))
	}
	util.InfoLog("Status:     %s", status)

	if len(rec.Genres) > 0 {
		util.InfoLog("Genres:     %s", strings.Join(rec.Genres, ", "))
	}
	if rec.VoteAverage > 0 {
		util.InfoLog("Score:      %.1f/10", rec.VoteAverage)
	}
	if !rec.AddedAt.IsZero() {
		util.InfoLog("Added:      %s", humanize.Time(rec.AddedAt))
	}
	if !rec.UpdatedAt.IsZero() && !rec.UpdatedAt.Equal(rec.AddedAt) {
		util.DebugLog("Updated:    %s", humanize.Time(rec.UpdatedAt))
	}
	if rec.Overview != "" {
		util.InfoLog("")
		util.InfoLog("%s", rec.Overview)
	}
}
