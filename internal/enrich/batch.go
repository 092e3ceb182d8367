package enrich

import (
	"context"
	"errors"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/store"
	"github.com/franz/movie-checklist/internal/util"
)

// BatchStore is the library access a batch run needs
type BatchStore interface {
	Store
	ListNeedingEnrichment(ctx context.Context, afterID int64) ([]library.Record, error)
	GetEnrichProgress() (*store.EnrichProgress, error)
	InitEnrichProgress(totalRecords int) error
	UpdateEnrichProgress(lastID int64, processed, failed int) error
	ClearEnrichProgress() error
}

// RunOptions controls a batch run
type RunOptions struct {
	Resume bool // continue after the last record of an interrupted run
	Limit  int  // 0 = no limit

	// OnProgress is called after each record
	OnProgress func(done, total int, rec library.Record, err error)
}

// Stats summarizes a batch run
type Stats struct {
	Total     int
	Enriched  int
	Unchanged int // fetched, but the catalog has no genres either
	Removed   int
	Failed    int
}

// Run enriches every record with an empty genre list, one detail fetch per
// record. Failures are counted and never stop the run; cancelling ctx does,
// and leaves the progress in place for a resumed run.
func (e *Enricher) Run(ctx context.Context, bs BatchStore, opts RunOptions) (*Stats, error) {
	var afterID int64
	processed, failed := 0, 0
	resumed := false

	if opts.Resume {
		p, err := bs.GetEnrichProgress()
		if err != nil {
			return nil, err
		}
		if p != nil {
			afterID = p.LastProcessedID
			processed = p.RecordsProcessed
			failed = p.RecordsFailed
			resumed = true
			util.InfoLog("Resuming enrichment after record %d (%d/%d done)", afterID, processed, p.TotalRecords)
		}
	}

	records, err := bs.ListNeedingEnrichment(ctx, afterID)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	if !resumed {
		if err := bs.InitEnrichProgress(len(records)); err != nil {
			return nil, err
		}
	}

	stats := &Stats{Total: len(records)}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		got, err := e.EnrichOne(ctx, rec.ID, rec.MediaType)
		switch {
		case errors.Is(err, context.Canceled):
			return stats, err
		case err != nil:
			stats.Failed++
			failed++
			util.WarnLog("Failed to enrich %d '%s': %v", rec.ID, rec.Title, err)
		case got == nil:
			stats.Removed++
		case len(got.Genres) > 0:
			stats.Enriched++
		default:
			stats.Unchanged++
		}

		processed++
		if perr := bs.UpdateEnrichProgress(rec.ID, processed, failed); perr != nil {
			util.DebugLog("Failed to record enrichment progress: %v", perr)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(records), rec, err)
		}
	}

	if err := bs.ClearEnrichProgress(); err != nil {
		util.DebugLog("Failed to clear enrichment progress: %v", err)
	}

	return stats, nil
}
