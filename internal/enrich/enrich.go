// Package enrich refreshes library records that were created from search
// results with the full catalog details.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/reconcile"
	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/util"
)

// Store is the library access the enricher needs
type Store interface {
	Get(ctx context.Context, id int64) (*library.Record, error)
	UpdateCatalogFields(ctx context.Context, rec library.Record) error
}

// Enricher fetches details and merges them into existing library records
type Enricher struct {
	catalog catalog.Backend
	store   Store
	events  *report.EventLogger
}

// New creates an enricher. events may be nil.
func New(backend catalog.Backend, store Store, events *report.EventLogger) *Enricher {
	return &Enricher{
		catalog: backend,
		store:   store,
		events:  events,
	}
}

// EnrichOne fetches details for a library record and stores its catalog
// fields. Status and rating are left to whoever owns them, so a user action
// landing during the refresh is kept. Returns the stored record, or nil
// when the record left the library while its details were being fetched.
func (e *Enricher) EnrichOne(ctx context.Context, id int64, mediaType library.MediaType) (*library.Record, error) {
	start := time.Now()

	detail, err := e.catalog.Details(ctx, id, mediaType)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.events.LogEnrich(library.Record{ID: id, MediaType: mediaType}, time.Since(start), err)
		}
		return nil, fmt.Errorf("failed to fetch details for %d: %w", id, err)
	}

	// Re-read for the comparison below
	existing, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		util.DebugLog("Record %d left the library during enrichment, discarding details", id)
		return nil, nil
	}

	merged := reconcile.Refresh(*existing, detail)
	if merged.Equal(*existing) {
		return existing, nil
	}

	if err := e.store.UpdateCatalogFields(ctx, merged); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	stored, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	util.DebugLog("Enriched %d '%s' with %d genres", id, stored.Title, len(stored.Genres))
	e.events.LogEnrich(*stored, time.Since(start), nil)

	return stored, nil
}
