// Package catalogtest provides an in-memory catalog backend for tests.
package catalogtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
)

// Fake is a scriptable catalog.Backend
type Fake struct {
	mu        sync.Mutex
	details   map[int64]*catalog.Detail
	detailErr map[int64]error
	pages     map[string]*catalog.SearchPage
	searchErr error
	gate      chan struct{}

	detailCalls int
	queries     []string
	started     chan string
}

// NewFake creates an empty fake catalog
func NewFake() *Fake {
	return &Fake{
		details:   make(map[int64]*catalog.Detail),
		detailErr: make(map[int64]error),
		pages:     make(map[string]*catalog.SearchPage),
		started:   make(chan string, 256),
	}
}

// AddDetail registers a detail payload
func (f *Fake) AddDetail(d catalog.Detail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[d.ID] = &d
	delete(f.detailErr, d.ID)
}

// FailDetail makes detail lookups of id fail with err
func (f *Fake) FailDetail(id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailErr[id] = err
}

// AddSearch registers the page returned for query
func (f *Fake) AddSearch(query string, page catalog.SearchPage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[query] = &page
}

// FailSearch makes every search fail with err; nil clears it
func (f *Fake) FailSearch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchErr = err
}

// Hold blocks every call until Release or the caller's context is done
func (f *Fake) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Release unblocks held calls
func (f *Fake) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Started receives "details:<id>" or "search:<query>" when a call begins
func (f *Fake) Started() <-chan string {
	return f.started
}

// DetailCalls returns the number of detail lookups so far
func (f *Fake) DetailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls
}

// Queries returns the search queries received so far
func (f *Fake) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// SearchMulti implements catalog.Backend
func (f *Fake) SearchMulti(ctx context.Context, query string, page int) (*catalog.SearchPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gate
	f.mu.Unlock()

	f.notify("search:" + query)
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if p, ok := f.pages[query]; ok {
		out := *p
		out.Results = append([]catalog.Result(nil), p.Results...)
		return &out, nil
	}
	return &catalog.SearchPage{Page: page, Results: []catalog.Result{}}, nil
}

// Details implements catalog.Backend
func (f *Fake) Details(ctx context.Context, id int64, mediaType library.MediaType) (*catalog.Detail, error) {
	f.mu.Lock()
	f.detailCalls++
	gate := f.gate
	f.mu.Unlock()

	f.notify(fmt.Sprintf("details:%d", id))
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.detailErr[id]; ok {
		return nil, err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, &catalog.HTTPError{Op: "details", Code: 404}
	}
	out := *d
	out.Genres = append([]catalog.Genre(nil), d.Genres...)
	return &out, nil
}

func (f *Fake) notify(call string) {
	select {
	case f.started <- call:
	default:
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return ctx.Err()
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
