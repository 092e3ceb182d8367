// Package session drives one detail view: it follows the library record
// for a catalog id, fills in catalog data the record lacks, and applies the
// user's status changes.
//
// State is published as a Resource carrying a *library.Record. A nil
// record never appears in a Success: a title that is not in the library
// is shown as a transient record with NotInLibrary ownership.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/reconcile"
	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/resource"
	"github.com/franz/movie-checklist/internal/util"
)

var (
	// ErrNotLoaded indicates an action before any record was loaded
	ErrNotLoaded = errors.New("session: record not loaded")

	// ErrClosed indicates an action on a closed session
	ErrClosed = errors.New("session: closed")
)

// Store is the library access a session needs
type Store interface {
	Watch(ctx context.Context, id int64) <-chan *library.Record
	Insert(ctx context.Context, rec library.Record) error
	InsertOrReplace(ctx context.Context, rec library.Record) error
	Update(ctx context.Context, rec library.Record) error
	UpdateCatalogFields(ctx context.Context, rec library.Record) error
}

// State is what the detail view renders
type State = resource.Resource[*library.Record]

// Options configures a session
type Options struct {
	Events *report.EventLogger
}

// Session is one open detail view
type Session struct {
	id        int64
	mediaType library.MediaType
	store     Store
	catalog   catalog.Backend
	events    *report.EventLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu serializes deliveries, fetch results and actions. gen increases on
	// each of them; a fetch result is applied only if gen has not moved
	// since the fetch started.
	mu          sync.Mutex
	gen         uint64
	current     State
	fetchCancel context.CancelFunc
	closed      bool

	states chan State
	errs   chan error
}

// Open starts a session for a catalog id. It subscribes to the library
// record right away; the first state arrives on States.
func Open(ctx context.Context, st Store, backend catalog.Backend, id int64, mediaType library.MediaType, opts Options) *Session {
	sctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:        id,
		mediaType: mediaType,
		store:     st,
		catalog:   backend,
		events:    opts.Events,
		ctx:       sctx,
		cancel:    cancel,
		current:   resource.Loading[*library.Record](),
		states:    make(chan State, 1),
		errs:      make(chan error, 8),
	}

	updates := st.Watch(sctx, id)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for rec := range updates {
			s.onDelivery(rec)
		}
	}()

	return s
}

// States delivers every state change. Only the latest undelivered state is
// kept. Closed by Close.
func (s *Session) States() <-chan State {
	return s.states
}

// Errors delivers background enrichment failures. These never replace a
// Success already shown. Closed by Close.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ID returns the catalog id of the session
func (s *Session) ID() int64 {
	return s.id
}

// Close cancels the subscription and any fetch in flight. No state is
// emitted after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelFetchLocked()
	close(s.states)
	close(s.errs)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// onDelivery handles a value from the live point lookup
func (s *Session) onDelivery(rec *library.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.gen++
	s.cancelFetchLocked()

	if rec == nil {
		// Not in the library: show the catalog's version of the title
		s.emitLocked(resource.Loading[*library.Record]())
		s.startFetchLocked(s.fetchTransient, library.Record{ID: s.id, MediaType: s.mediaType})
		return
	}

	if cur, ok := s.current.Data(); ok && s.current.IsSuccess() && cur != nil && cur.Equal(*rec) {
		// Only the store timestamps moved, usually our own write coming back
		s.current = resource.Success(rec)
	} else {
		s.emitLocked(resource.Success(rec))
	}

	if reconcile.NeedsEnrichment(*rec) {
		s.startFetchLocked(s.enrich, *rec)
	}
}

// startFetchLocked runs fn in the background with a context cancelled on
// the next delivery, action or Close
func (s *Session) startFetchLocked(fn func(ctx context.Context, gen uint64, rec library.Record), rec library.Record) {
	fctx, cancel := context.WithCancel(s.ctx)
	s.fetchCancel = cancel
	gen := s.gen

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		fn(fctx, gen, rec)
	}()
}

// fetchTransient loads a title that is not in the library
func (s *Session) fetchTransient(ctx context.Context, gen uint64, rec library.Record) {
	detail, err := s.catalog.Details(ctx, rec.ID, rec.MediaType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return
	}

	if err != nil {
		msg, code := catalog.DetailMessage(err)
		util.DebugLog("Details for %d failed: %v", rec.ID, err)
		s.emitLocked(resource.Error[*library.Record](msg, code))
		return
	}

	transient := reconcile.MapDetail(detail, rec.MediaType)
	s.emitLocked(resource.Success(&transient))
}

// enrich refreshes a library record that has no genres. The merged record
// is published unless something newer happened meanwhile. Only the catalog
// fields are stored: rec may be older than the stored ownership when
// another writer's change has not been delivered yet.
func (s *Session) enrich(ctx context.Context, gen uint64, rec library.Record) {
	detail, err := s.catalog.Details(ctx, rec.ID, rec.MediaType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		util.DebugLog("Discarding stale enrichment of %d", rec.ID)
		return
	}

	if err != nil {
		util.WarnLog("Could not refresh details of '%s': %v", rec.Title, err)
		s.events.LogEnrich(rec, 0, err)
		select {
		case s.errs <- fmt.Errorf("refresh %d: %w", rec.ID, err):
		default:
		}
		return
	}

	merged := reconcile.Refresh(rec, detail)
	if merged.Equal(rec) {
		return
	}

	s.gen++
	s.emitLocked(resource.Success(&merged))

	if err := s.store.UpdateCatalogFields(s.ctx, merged); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			util.DebugLog("Record %d left the library during refresh", merged.ID)
			return
		}
		util.WarnLog("Could not store refreshed details of '%s': %v", merged.Title, err)
		return
	}
	s.events.LogEnrich(merged, 0, nil)
}

// AddToPlanned puts a title that is not in the library on the planned list
func (s *Session) AddToPlanned(ctx context.Context) error {
	return s.apply(ctx, report.EventAdd, func(o library.Ownership) (library.Ownership, error) {
		return library.AddToPlanned(o)
	}, s.insert)
}

// MarkWatched marks the title watched from any status. Pass
// library.NoRating for unrated.
func (s *Session) MarkWatched(ctx context.Context, rating library.Rating) error {
	return s.apply(ctx, report.EventWatched, func(o library.Ownership) (library.Ownership, error) {
		return library.MarkWatched(o, rating)
	}, s.store.InsertOrReplace)
}

// MarkPlanned moves a watched title back to planned, clearing its rating
func (s *Session) MarkPlanned(ctx context.Context) error {
	return s.apply(ctx, report.EventPlanned, library.MarkPlanned, s.store.Update)
}

// UpdateRating changes the rating of a watched title
func (s *Session) UpdateRating(ctx context.Context, rating library.Rating) error {
	return s.apply(ctx, report.EventRated, func(o library.Ownership) (library.Ownership, error) {
		return library.UpdateRating(o, rating)
	}, s.store.Update)
}

// apply validates a transition against the shown record, publishes the
// result and persists it. A persistence failure is returned; the published
// state is not rolled back.
func (s *Session) apply(ctx context.Context, event report.EventType,
	transition func(library.Ownership) (library.Ownership, error),
	persist func(context.Context, library.Record) error) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	cur, ok := s.current.Data()
	if !ok || cur == nil {
		return ErrNotLoaded
	}

	owned, err := transition(cur.Ownership)
	if err != nil {
		return err
	}

	next := cur.WithOwnership(owned)
	s.gen++
	s.cancelFetchLocked()
	s.emitLocked(resource.Success(&next))

	err = persist(ctx, next)
	s.events.LogAction(event, next, err)
	if err != nil {
		return fmt.Errorf("failed to save '%s': %w", next.Title, err)
	}

	return nil
}

// insert stores a new record; an id stored meanwhile by another writer
// rejects the add
func (s *Session) insert(ctx context.Context, rec library.Record) error {
	err := s.store.Insert(ctx, rec)
	if errors.Is(err, util.ErrExists) {
		return fmt.Errorf("%w: %w", util.ErrInvalidTransition, err)
	}
	return err
}

func (s *Session) cancelFetchLocked() {
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
}

// emitLocked publishes st, replacing any state the consumer has not read
func (s *Session) emitLocked(st State) {
	if s.closed {
		return
	}
	s.current = st

	select {
	case <-s.states:
	default:
	}
	s.states <- st
}
