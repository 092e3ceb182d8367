// Package search is the search screen controller: debounced remote search,
// adding results to the planned list, and library badges for results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/reconcile"
	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/resource"
	"github.com/franz/movie-checklist/internal/util"
)

const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultMinQueryLength = 3
)

// Store is the library access the search screen needs
type Store interface {
	Get(ctx context.Context, id int64) (*library.Record, error)
	Insert(ctx context.Context, rec library.Record) error
	WatchAll(ctx context.Context) <-chan []library.Record
}

// Enricher fills in catalog details for a newly added record
type Enricher interface {
	EnrichOne(ctx context.Context, id int64, mediaType library.MediaType) (*library.Record, error)
}

// State is what the result list renders
type State = resource.Resource[*catalog.SearchPage]

// Statuses maps catalog ids to their library ownership. Titles not in the
// library are absent.
type Statuses map[int64]library.Ownership

// Options configures a controller
type Options struct {
	Debounce       time.Duration // 0 = DefaultDebounce
	MinQueryLength int           // 0 = DefaultMinQueryLength
	Events         *report.EventLogger
}

// Controller runs searches for one search screen
type Controller struct {
	store    Store
	catalog  catalog.Backend
	enricher Enricher
	events   *report.EventLogger
	debounce time.Duration
	minLen   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	gen          uint64
	query        string
	filter       library.MediaType
	timer        *time.Timer
	searchCancel context.CancelFunc
	current      State
	statuses     Statuses
	closed       bool

	results    chan State
	statusesCh chan Statuses
}

// New creates a controller and starts following the library for badges.
// enricher may be nil, in which case added titles are not enriched.
func New(ctx context.Context, st Store, backend catalog.Backend, enricher Enricher, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		store:      st,
		catalog:    backend,
		enricher:   enricher,
		events:     opts.Events,
		debounce:   opts.Debounce,
		minLen:     opts.MinQueryLength,
		ctx:        cctx,
		cancel:     cancel,
		current:    resource.Success(emptyPage()),
		statuses:   Statuses{},
		results:    make(chan State, 1),
		statusesCh: make(chan Statuses, 1),
	}

	all := st.WatchAll(cctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for records := range all {
			c.onLibrary(records)
		}
	}()

	return c
}

// Results delivers search states. Only the latest undelivered state is
// kept. Closed by Close.
func (c *Controller) Results() <-chan State {
	return c.results
}

// LibraryStatuses delivers the id to ownership map each time the library
// changes. Closed by Close.
func (c *Controller) LibraryStatuses() <-chan Statuses {
	return c.statusesCh
}

// Status returns the library ownership of a catalog id
func (c *Controller) Status(id int64) library.Ownership {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.statuses[id]; ok {
		return o
	}
	return library.NotInLibrary()
}

// State returns the current search state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Query returns the current query text
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetQuery replaces the query. Any pending or running search is cancelled;
// the new one starts after the debounce delay.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.query = q
	c.restartLocked()
}

// SetMediaTypeFilter limits results to one media type. Pass "" for all.
func (c *Controller) SetMediaTypeFilter(mt library.MediaType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.filter == mt {
		return
	}
	c.filter = mt
	c.restartLocked()
}

func (c *Controller) restartLocked() {
	c.gen++
	c.stopLocked()

	q := strings.TrimSpace(c.query)
	if utf8.RuneCountInString(q) < c.minLen {
		c.emitLocked(resource.Success(emptyPage()))
		return
	}

	gen, filter := c.gen, c.filter
	c.timer = time.AfterFunc(c.debounce, func() {
		c.run(gen, q, filter)
	})
}

// stopLocked drops the pending timer and cancels the running search
func (c *Controller) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.searchCancel != nil {
		c.searchCancel()
		c.searchCancel = nil
	}
}

func (c *Controller) run(gen uint64, q string, filter library.MediaType) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.searchCancel = cancel
	c.emitLocked(resource.Loading[*catalog.SearchPage]())
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer cancel()

	start := time.Now()
	page, err := c.catalog.SearchMulti(ctx, q, 1)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		util.DebugLog("Discarding superseded search '%s'", q)
		return
	}

	if err != nil {
		msg, code := catalog.SearchMessage(err)
		util.DebugLog("Search '%s' failed: %v", q, err)
		c.events.LogSearch(q, 0, elapsed, err)
		c.emitLocked(resource.Error[*catalog.SearchPage](msg, code))
		return
	}

	page = filterPage(page, filter)
	c.events.LogSearch(q, len(page.Results), elapsed, nil)
	c.emitLocked(resource.Success(page))
}

// AddToPlanned stores a search result on the planned list and fetches its
// full details in the background. Titles already in the library are
// rejected.
func (c *Controller) AddToPlanned(ctx context.Context, r catalog.Result) error {
	rec := reconcile.MapSearchResult(r, library.StatePlanned)

	existing, err := c.store.Get(ctx, rec.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: '%s' is already %s", util.ErrInvalidTransition, existing.Title, existing.Ownership)
	}

	// The lookup above is only for the message; a write racing it is
	// caught by Insert
	err = c.store.Insert(ctx, rec)
	c.events.LogAction(report.EventAdd, rec, err)
	if errors.Is(err, util.ErrExists) {
		return fmt.Errorf("%w: '%s': %w", util.ErrInvalidTransition, rec.Title, err)
	}
	if err != nil {
		return fmt.Errorf("failed to add '%s': %w", rec.Title, err)
	}

	util.DebugLog("Added '%s' (%d) to planned", rec.Title, rec.ID)
	c.enrichLater(rec)
	return nil
}

func (c *Controller) enrichLater(rec library.Record) {
	if c.enricher == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.enricher.EnrichOne(c.ctx, rec.ID, rec.MediaType); err != nil && c.ctx.Err() == nil {
			util.WarnLog("Could not fetch details of '%s': %v", rec.Title, err)
		}
	}()
}

func (c *Controller) onLibrary(records []library.Record) {
	statuses := make(Statuses, len(records))
	for _, r := range records {
		statuses[r.ID] = r.Ownership
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.statuses = statuses

	snapshot := make(Statuses, len(statuses))
	for id, o := range statuses {
		snapshot[id] = o
	}
	select {
	case <-c.statusesCh:
	default:
	}
	c.statusesCh <- snapshot
}

// Close cancels pending work and waits for background enrichment to stop
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopLocked()
	close(c.results)
	close(c.statusesCh)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) emitLocked(st State) {
	if c.closed {
		return
	}
	c.current = st

	select {
	case <-c.results:
	default:
	}
	c.results <- st
}

func filterPage(page *catalog.SearchPage, mt library.MediaType) *catalog.SearchPage {
	if mt == "" {
		return page
	}
	out := *page
	out.Results = make([]catalog.Result, 0, len(page.Results))
	for _, r := range page.Results {
		if reconcile.ResolveMediaType(r) == mt {
			out.Results = append(out.Results, r)
		}
	}
	return &out
}

func emptyPage() *catalog.SearchPage {
	return &catalog.SearchPage{Page: 1, Results: []catalog.Result{}}
}
