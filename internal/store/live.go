package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

// hub fans write notifications out to live queries
type hub struct {
	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
	done   chan struct{}
	closed bool
}

func newHub() *hub {
	return &hub{
		subs: make(map[int]chan struct{}),
		done: make(chan struct{}),
	}
}

// subscribe returns a channel that receives at least one value after every
// notify. Pending notifications coalesce.
func (h *hub) subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan struct{}, 1)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

// Watch is a live point lookup: it delivers the record (nil when the id is
// not in the library) and re-delivers after every change to it. The channel
// holds only the latest value and is closed when ctx is done or the store
// is closed.
func (s *Store) Watch(ctx context.Context, id int64) <-chan *library.Record {
	return watch(ctx, s, fmt.Sprintf("record %d", id),
		func(ctx context.Context) (*library.Record, error) {
			return s.Get(ctx, id)
		},
		func(a, b *library.Record) bool {
			if a == nil || b == nil {
				return a == b
			}
			return a.Equal(*b)
		})
}

// WatchStatus is a live ListByStatus
func (s *Store) WatchStatus(ctx context.Context, state library.State) <-chan []library.Record {
	return s.WatchFilter(ctx, Filter{Status: state})
}

// WatchAll is a live ListAll
func (s *Store) WatchAll(ctx context.Context) <-chan []library.Record {
	return s.WatchFilter(ctx, Filter{})
}

// WatchFilter is a live Search
func (s *Store) WatchFilter(ctx context.Context, f Filter) <-chan []library.Record {
	return watch(ctx, s, fmt.Sprintf("list %s", f.Status),
		func(ctx context.Context) ([]library.Record, error) {
			return s.Search(ctx, f)
		},
		recordsEqual)
}

func watch[T any](ctx context.Context, s *Store, name string, query func(context.Context) (T, error), equal func(a, b T) bool) <-chan T {
	out := make(chan T, 1)

	// Subscribe before the first query so no write is missed
	kick, unsubscribe := s.hub.subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		var last T
		sent := false

		deliver := func() {
			v, err := query(ctx)
			if err != nil {
				select {
				case <-ctx.Done():
				case <-s.hub.done:
				default:
					util.WarnLog("Live query %s failed: %v", name, err)
				}
				return
			}
			if sent && equal(last, v) {
				return
			}
			last, sent = v, true

			// Replace an undelivered value with the newer one
			select {
			case <-out:
			default:
			}
			out <- v
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.hub.done:
				return
			case <-kick:
				deliver()
			}
		}
	}()

	return out
}

func recordsEqual(a, b []library.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// WatchExternalChanges re-runs live queries when another process writes to
// the database file. Runs until ctx is done or the store is closed.
func (s *Store) WatchExternalChanges(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		fw.Close()
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	base := filepath.Base(abs)
	watched := map[string]bool{base: true, base + "-wal": true}

	go func() {
		defer fw.Close()

		// Debounce: a transaction touches the db and its WAL several times
		const debounce = 100 * time.Millisecond
		var pending time.Time
		ticker := time.NewTicker(debounce)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.hub.done:
				return

			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if !watched[filepath.Base(event.Name)] {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
					pending = time.Now()
				}

			case <-ticker.C:
				if !pending.IsZero() && time.Since(pending) >= debounce {
					util.DebugLog("Library changed on disk, refreshing live queries")
					pending = time.Time{}
					s.hub.notify()
				}

			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				util.DebugLog("File watcher error: %v", err)
			}
		}
	}()

	return nil
}
