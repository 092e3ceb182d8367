package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/store"
	"github.com/franz/movie-checklist/internal/util"
)

// app bundles what most commands need: the library, the catalog stack and
// the event log
type app struct {
	store   *store.Store
	cache   *catalog.Cache
	breaker *catalog.Breaker
	events  *report.EventLogger
}

// openApp opens the library and builds client → breaker → cache
func openApp() (*app, error) {
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	if cfg.Catalog.APIKey == "" {
		util.DebugLog("No catalog API key configured (set MCL_CATALOG_API_KEY)")
	}

	client := catalog.NewClient(cfg.Catalog.ClientConfig())
	breaker := catalog.NewBreaker(client, cfg.Catalog.BreakerConfig())
	cache := catalog.NewCache(st.DB(), breaker, cfg.Catalog.CacheTTL)
	if err := cache.EnsureSchema(); err != nil {
		st.Close()
		return nil, err
	}

	a := &app{store: st, cache: cache, breaker: breaker}

	if cfg.EventsDir != "" {
		a.events, err = report.NewEventLogger(cfg.EventsDir, report.LevelInfo)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create event logger: %w", err)
		}
		util.DebugLog("Event log: %s", a.events.Path())
	}

	return a, nil
}

func (a *app) Close() {
	if err := a.events.Close(); err != nil {
		util.WarnLog("Failed to close event log: %v", err)
	}
	if err := a.store.Close(); err != nil {
		util.WarnLog("Failed to close library: %v", err)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid catalog id %q", s)
	}
	return id, nil
}

func parseRating(s string) (library.Rating, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return library.NoRating, fmt.Errorf("%w: %q", util.ErrInvalidRating, s)
	}
	r := library.Rating(n)
	if !r.Valid() {
		return library.NoRating, fmt.Errorf("%w: %d (must be %d-%d)", util.ErrInvalidRating, n, library.MinRating, library.MaxRating)
	}
	return r, nil
}

// stars renders a rating as ★★★☆☆
func stars(o library.Ownership) string {
	r, ok := o.Rating()
	if !ok {
		return ""
	}
	out := ""
	for i := library.MinRating; i <= library.MaxRating; i++ {
		if i <= r {
			out += "★"
		} else {
			out += "☆"
		}
	}
	return out
}

// requireRecord loads a library record or fails with ErrNotFound
func (a *app) requireRecord(ctx context.Context, idArg string) (*library.Record, error) {
	id, err := parseID(idArg)
	if err != nil {
		return nil, err
	}
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %d is not in the library", util.ErrNotFound, id)
	}
	return rec, nil
}
