// Package lists backs the planned and watched list screens.
package lists

import (
	"context"
	"fmt"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/store"
	"github.com/franz/movie-checklist/internal/util"
)

// Store is the library access the list screens need
type Store interface {
	WatchStatus(ctx context.Context, state library.State) <-chan []library.Record
	Search(ctx context.Context, f store.Filter) ([]library.Record, error)
	Update(ctx context.Context, rec library.Record) error
	Delete(ctx context.Context, id int64) error
}

// Controller applies list actions to library records
type Controller struct {
	store  Store
	events *report.EventLogger
}

// New creates a list controller. events may be nil.
func New(st Store, events *report.EventLogger) *Controller {
	return &Controller{store: st, events: events}
}

// Planned follows the planned list ordered by title
func (c *Controller) Planned(ctx context.Context) <-chan []library.Record {
	return c.store.WatchStatus(ctx, library.StatePlanned)
}

// Watched follows the watched list ordered by title
func (c *Controller) Watched(ctx context.Context) <-chan []library.Record {
	return c.store.WatchStatus(ctx, library.StateWatched)
}

// MoveToWatched marks a record watched with an optional rating
func (c *Controller) MoveToWatched(ctx context.Context, rec library.Record, rating library.Rating) (library.Record, error) {
	return c.apply(ctx, report.EventWatched, rec, func(o library.Ownership) (library.Ownership, error) {
		return library.MarkWatched(o, rating)
	})
}

// MoveToPlanned moves a watched record back to planned and clears its rating
func (c *Controller) MoveToPlanned(ctx context.Context, rec library.Record) (library.Record, error) {
	return c.apply(ctx, report.EventPlanned, rec, library.MarkPlanned)
}

// UpdateUserRating changes the rating of a watched record
func (c *Controller) UpdateUserRating(ctx context.Context, rec library.Record, rating library.Rating) (library.Record, error) {
	return c.apply(ctx, report.EventRated, rec, func(o library.Ownership) (library.Ownership, error) {
		return library.UpdateRating(o, rating)
	})
}

// RemoveFromPlanned deletes a planned record. Watched records must be moved
// back to planned first.
func (c *Controller) RemoveFromPlanned(ctx context.Context, rec library.Record) error {
	if rec.Ownership.State() != library.StatePlanned {
		return fmt.Errorf("%w: remove from %s", util.ErrInvalidTransition, rec.Ownership.State())
	}

	err := c.store.Delete(ctx, rec.ID)
	c.events.LogAction(report.EventRemoved, rec, err)
	if err != nil {
		return fmt.Errorf("failed to remove '%s': %w", rec.Title, err)
	}
	return nil
}

// SearchLocal finds library records by title
func (c *Controller) SearchLocal(ctx context.Context, f store.Filter) ([]library.Record, error) {
	return c.store.Search(ctx, f)
}

func (c *Controller) apply(ctx context.Context, event report.EventType, rec library.Record,
	transition func(library.Ownership) (library.Ownership, error)) (library.Record, error) {

	owned, err := transition(rec.Ownership)
	if err != nil {
		return rec, err
	}

	next := rec.WithOwnership(owned)
	err = c.store.Update(ctx, next)
	c.events.LogAction(event, next, err)
	if err != nil {
		return rec, fmt.Errorf("failed to save '%s': %w", rec.Title, err)
	}

	return next, nil
}
