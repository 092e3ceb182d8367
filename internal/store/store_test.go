package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test-library.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id int64, title string, o library.Ownership) library.Record {
	return library.Record{
		ID:          id,
		Title:       title,
		Overview:    "Overview of " + title,
		PosterPath:  "/poster.jpg",
		ReleaseDate: "1999-03-30",
		VoteAverage: 8.2,
		Genres:      []string{},
		MediaType:   library.MediaMovie,
		Ownership:   o,
	}
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"library", "enrich_progress", "schema_version"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.InsertOrReplace(ctx, testRecord(603, "The Matrix", library.Planned())); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	rec, err := store.Get(ctx, 603)
	if err != nil || rec == nil {
		t.Fatalf("expected record after reopen, got %v, %v", rec, err)
	}
}

func TestRecordInsertAndRetrieve(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord(603, "The Matrix", library.Watched(4))
	rec.Genres = []string{"Action", "Science Fiction"}

	if err := store.InsertOrReplace(ctx, rec); err != nil {
		t.Fatalf("failed to insert record: %v", err)
	}

	retrieved, err := store.Get(ctx, 603)
	if err != nil {
		t.Fatalf("failed to retrieve record: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected to retrieve record, got nil")
	}
	if !retrieved.Equal(rec) {
		t.Errorf("expected %+v, got %+v", rec, *retrieved)
	}
	if retrieved.AddedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	missing, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("failed to query missing record: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing record, got %+v", missing)
	}
}

func TestInsertOrReplaceKeepsAddedAt(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	added := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return added }
	if err := store.InsertOrReplace(ctx, testRecord(603, "The Matrix", library.Planned())); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	later := added.Add(48 * time.Hour)
	store.now = func() time.Time { return later }
	if err := store.InsertOrReplace(ctx, testRecord(603, "The Matrix", library.Watched(5))); err != nil {
		t.Fatalf("failed to replace: %v", err)
	}

	rec, err := store.Get(ctx, 603)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !rec.AddedAt.Equal(added) {
		t.Errorf("expected added_at %v, got %v", added, rec.AddedAt)
	}
	if !rec.UpdatedAt.Equal(later) {
		t.Errorf("expected updated_at %v, got %v", later, rec.UpdatedAt)
	}
	if rec.Ownership != library.Watched(5) {
		t.Errorf("expected watched (5/5), got %s", rec.Ownership)
	}
}

func TestInsertRejectsInvalidRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  library.Record
	}{
		{"not in library", testRecord(1, "Transient", library.NotInLibrary())},
		{"zero id", testRecord(0, "No ID", library.Planned())},
		{"no media type", func() library.Record {
			r := testRecord(2, "Typeless", library.Planned())
			r.MediaType = ""
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.InsertOrReplace(ctx, tt.rec)
			if !errors.Is(err, util.ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, testRecord(603, "The Matrix", library.Planned()))
	if !errors.Is(err, util.ErrNotFound) || !errors.Is(err, util.ErrLocalStore) {
		t.Errorf("expected not found store error, got %v", err)
	}

	if err := store.InsertOrReplace(ctx, testRecord(603, "The Matrix", library.Watched(3))); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	replanned := testRecord(603, "The Matrix", library.Planned())
	replanned.Genres = []string{"Action"}
	if err := store.Update(ctx, replanned); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	rec, err := store.Get(ctx, 603)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if rec.Ownership != library.Planned() {
		t.Errorf("expected planned, got %s", rec.Ownership)
	}
	if _, rated := rec.Ownership.Rating(); rated {
		t.Error("expected rating to be cleared")
	}
	if len(rec.Genres) != 1 || rec.Genres[0] != "Action" {
		t.Errorf("expected genres [Action], got %v", rec.Genres)
	}
}

func TestInsertRejectsExistingID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord(603, "The Matrix", library.Planned())); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := store.Update(ctx, testRecord(603, "The Matrix", library.Watched(5))); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	err := store.Insert(ctx, testRecord(603, "The Matrix", library.Planned()))
	if !errors.Is(err, util.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	rec, err := store.Get(ctx, 603)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if rec.Ownership != library.Watched(5) {
		t.Errorf("stored ownership changed to %s", rec.Ownership)
	}
}

func TestUpdateCatalogFieldsKeepsOwnership(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.UpdateCatalogFields(ctx, testRecord(603, "The Matrix", library.Planned()))
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing record, got %v", err)
	}

	if err := store.InsertOrReplace(ctx, testRecord(603, "Matrix", library.Watched(5))); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	// A refresh built from an older planned snapshot
	refreshed := testRecord(603, "The Matrix", library.Planned())
	refreshed.Genres = []string{"Action", "Science Fiction"}
	refreshed.Overview = "Set in the 22nd century..."
	if err := store.UpdateCatalogFields(ctx, refreshed); err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}

	rec, err := store.Get(ctx, 603)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if rec.Ownership != library.Watched(5) {
		t.Errorf("expected watched(5) to survive the refresh, got %s", rec.Ownership)
	}
	if rec.Title != "The Matrix" || rec.Overview != "Set in the 22nd century..." || len(rec.Genres) != 2 {
		t.Errorf("catalog fields not written: %+v", rec)
	}

	found, err := store.Search(ctx, Filter{Text: "the matrix"})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("expected title key to follow the new title, got %d results", len(found))
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.InsertOrReplace(ctx, testRecord(603, "The Matrix", library.Planned())); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := store.Delete(ctx, 603); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	rec, err := store.Get(ctx, 603)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if rec != nil {
		t.Error("expected record to be deleted")
	}

	if err := store.Delete(ctx, 603); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListByStatusOrderedByTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	records := []library.Record{
		testRecord(3, "zodiac", library.Planned()),
		testRecord(1, "Alien", library.Planned()),
		testRecord(2, "Memento", library.Watched(5)),
		testRecord(4, "Brazil", library.Planned()),
	}
	for _, r := range records {
		if err := store.InsertOrReplace(ctx, r); err != nil {
			t.Fatalf("failed to insert %s: %v", r.Title, err)
		}
	}

	planned, err := store.ListByStatus(ctx, library.StatePlanned)
	if err != nil {
		t.Fatalf("failed to list planned: %v", err)
	}
	want := []string{"Alien", "Brazil", "zodiac"}
	if len(planned) != len(want) {
		t.Fatalf("expected %d planned, got %d", len(want), len(planned))
	}
	for i, title := range want {
		if planned[i].Title != title {
			t.Errorf("position %d: expected %s, got %s", i, title, planned[i].Title)
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("failed to list all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 records, got %d", len(all))
	}

	if _, err := store.ListByStatus(ctx, library.StateNone); err == nil {
		t.Error("expected error listing the none status")
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if counts[library.StatePlanned] != 3 || counts[library.StateWatched] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestSearch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	series := testRecord(1399, "Game of Thrones", library.Watched(2))
	series.MediaType = library.MediaSeries

	records := []library.Record{
		testRecord(603, "The Matrix", library.Planned()),
		testRecord(604, "The Matrix Reloaded", library.Watched(3)),
		testRecord(10, "100% Wolf", library.Planned()),
		testRecord(11, "1000 Wolves", library.Planned()),
		series,
	}
	for _, r := range records {
		if err := store.InsertOrReplace(ctx, r); err != nil {
			t.Fatalf("failed to insert %s: %v", r.Title, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"case folded text", Filter{Text: "MATRIX"}, []int64{603, 604}},
		{"text and status", Filter{Text: "matrix", Status: library.StateWatched}, []int64{604}},
		{"like wildcard is literal", Filter{Text: "100%"}, []int64{10}},
		{"media type", Filter{MediaType: library.MediaSeries}, []int64{1399}},
		{"blank text matches all", Filter{Text: "   "}, []int64{10, 11, 1399, 603, 604}},
		{"no match", Filter{Text: "inception"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Search(ctx, tt.filter)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: expected id %d, got %d", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestListNeedingEnrichment(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	enriched := testRecord(2, "Enriched", library.Planned())
	enriched.Genres = []string{"Drama"}

	for _, r := range []library.Record{
		testRecord(3, "Bare Three", library.Planned()),
		enriched,
		testRecord(1, "Bare One", library.Watched(1)),
	} {
		if err := store.InsertOrReplace(ctx, r); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}

	got, err := store.ListNeedingEnrichment(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("expected ids [1 3], got %+v", got)
	}

	got, err = store.ListNeedingEnrichment(ctx, 1)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("expected id 3 after resuming, got %+v", got)
	}
}

func TestEnrichProgress(t *testing.T) {
	store := openTestStore(t)

	p, err := store.GetEnrichProgress()
	if err != nil {
		t.Fatalf("failed to get progress: %v", err)
	}
	if p != nil {
		t.Fatalf("expected no progress, got %+v", p)
	}

	if err := store.InitEnrichProgress(10); err != nil {
		t.Fatalf("failed to init progress: %v", err)
	}
	if err := store.UpdateEnrichProgress(42, 4, 1); err != nil {
		t.Fatalf("failed to update progress: %v", err)
	}

	p, err = store.GetEnrichProgress()
	if err != nil {
		t.Fatalf("failed to get progress: %v", err)
	}
	if p == nil || p.LastProcessedID != 42 || p.TotalRecords != 10 || p.RecordsProcessed != 4 || p.RecordsFailed != 1 {
		t.Errorf("unexpected progress: %+v", p)
	}

	if err := store.ClearEnrichProgress(); err != nil {
		t.Fatalf("failed to clear progress: %v", err)
	}
	p, _ = store.GetEnrichProgress()
	if p != nil {
		t.Errorf("expected progress to be cleared, got %+v", p)
	}
}
