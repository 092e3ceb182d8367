package reconcile

import (
	"slices"
	"testing"

	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
)

func TestMapSearchResult(t *testing.T) {
	tests := []struct {
		name      string
		input     catalog.Result
		status    library.State
		wantTitle string
		wantDate  string
		wantType  library.MediaType
	}{
		{
			name:      "movie",
			input:     catalog.Result{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", MediaType: "movie", GenreIDs: []int{28, 878}},
			status:    library.StatePlanned,
			wantTitle: "The Matrix",
			wantDate:  "1999-03-30",
			wantType:  library.MediaMovie,
		},
		{
			name:      "series",
			input:     catalog.Result{ID: 1399, Name: "Game of Thrones", FirstAirDate: "2011-04-17", MediaType: "tv"},
			status:    library.StatePlanned,
			wantTitle: "Game of Thrones",
			wantDate:  "2011-04-17",
			wantType:  library.MediaSeries,
		},
		{
			name:      "missing media type with title infers movie",
			input:     catalog.Result{ID: 1, Title: "Heat", ReleaseDate: "1995-12-15"},
			status:    library.StateWatched,
			wantTitle: "Heat",
			wantDate:  "1995-12-15",
			wantType:  library.MediaMovie,
		},
		{
			name:      "missing media type without title infers series",
			input:     catalog.Result{ID: 2, Name: "Dark", FirstAirDate: "2017-12-01"},
			status:    library.StateNone,
			wantTitle: "Dark",
			wantDate:  "2017-12-01",
			wantType:  library.MediaSeries,
		},
		{
			name:      "release date preferred over first air date",
			input:     catalog.Result{ID: 3, Title: "Both", ReleaseDate: "2000-01-01", FirstAirDate: "1990-01-01", MediaType: "movie"},
			status:    library.StatePlanned,
			wantTitle: "Both",
			wantDate:  "2000-01-01",
			wantType:  library.MediaMovie,
		},
		{
			name:      "no title or name",
			input:     catalog.Result{ID: 4, MediaType: "movie"},
			status:    library.StatePlanned,
			wantTitle: UnknownTitle,
			wantType:  library.MediaMovie,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapSearchResult(tt.input, tt.status)

			if got.ID != tt.input.ID {
				t.Errorf("ID = %d, want %d", got.ID, tt.input.ID)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.ReleaseDate != tt.wantDate {
				t.Errorf("ReleaseDate = %q, want %q", got.ReleaseDate, tt.wantDate)
			}
			if got.MediaType != tt.wantType {
				t.Errorf("MediaType = %s, want %s", got.MediaType, tt.wantType)
			}
			if len(got.Genres) != 0 {
				t.Errorf("Genres = %v, want empty", got.Genres)
			}
			if got.Ownership.State() != tt.status {
				t.Errorf("State = %s, want %s", got.Ownership.State(), tt.status)
			}
			if _, rated := got.Ownership.Rating(); rated {
				t.Error("search mapping must not set a rating")
			}
		})
	}
}

func TestMapDetail(t *testing.T) {
	detail := &catalog.Detail{
		ID:           27205,
		Title:        "Inception",
		Overview:     "A thief who steals corporate secrets...",
		PosterPath:   "/poster.jpg",
		BackdropPath: "/backdrop.jpg",
		ReleaseDate:  "2010-07-15",
		VoteAverage:  8.4,
		Genres:       []catalog.Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
	}

	got := MapDetail(detail, library.MediaMovie)

	if got.Title != "Inception" || got.Overview != detail.Overview {
		t.Errorf("unexpected descriptive fields: %+v", got)
	}
	if got.PosterPath != "/poster.jpg" || got.BackdropPath != "/backdrop.jpg" {
		t.Errorf("unexpected images: %q %q", got.PosterPath, got.BackdropPath)
	}
	if got.VoteAverage != 8.4 {
		t.Errorf("VoteAverage = %v, want 8.4", got.VoteAverage)
	}
	if !slices.Equal(got.Genres, []string{"Action", "Science Fiction"}) {
		t.Errorf("Genres = %v", got.Genres)
	}
	if got.Ownership.InLibrary() {
		t.Errorf("detail mapping must not decide status, got %s", got.Ownership)
	}
}

func TestMapDetailSeriesFallbacks(t *testing.T) {
	detail := &catalog.Detail{ID: 1399, Name: "Game of Thrones", FirstAirDate: "2011-04-17"}

	got := MapDetail(detail, library.MediaSeries)

	if got.Title != "Game of Thrones" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.ReleaseDate != "2011-04-17" {
		t.Errorf("ReleaseDate = %q", got.ReleaseDate)
	}
	if got.MediaType != library.MediaSeries {
		t.Errorf("MediaType = %s", got.MediaType)
	}
}

func TestMergeOwnedFieldsPreservesOwnership(t *testing.T) {
	fresh := MapDetail(&catalog.Detail{ID: 603, Title: "The Matrix", Genres: []catalog.Genre{{Name: "Action"}}}, library.MediaMovie)

	owned := []library.Ownership{
		library.NotInLibrary(),
		library.Planned(),
		library.Watched(library.NoRating),
		library.Watched(1),
		library.Watched(5),
	}

	for _, existing := range owned {
		t.Run(existing.String(), func(t *testing.T) {
			once := MergeOwnedFields(fresh, existing)
			if once.Ownership != existing {
				t.Errorf("ownership = %s, want %s", once.Ownership, existing)
			}

			twice := MergeOwnedFields(once, existing)
			if !twice.Equal(once) {
				t.Errorf("merge is not idempotent: %+v != %+v", twice, once)
			}
		})
	}
}

func TestDetailRoundTripWatched(t *testing.T) {
	detail := &catalog.Detail{
		ID:          603,
		Title:       "The Matrix",
		Overview:    "Set in the 22nd century...",
		ReleaseDate: "1999-03-30",
		VoteAverage: 8.2,
		Genres:      []catalog.Genre{{ID: 28, Name: "Action"}},
	}

	got := MergeOwnedFields(MapDetail(detail, library.MediaMovie), library.Watched(4))

	if got.Ownership.State() != library.StateWatched {
		t.Errorf("State = %s, want watched", got.Ownership.State())
	}
	if rating, ok := got.Ownership.Rating(); !ok || rating != 4 {
		t.Errorf("Rating = %d (%v), want 4", rating, ok)
	}
	if got.Title != detail.Title || got.Overview != detail.Overview || got.ReleaseDate != detail.ReleaseDate {
		t.Errorf("catalog fields lost: %+v", got)
	}
	if !slices.Equal(got.Genres, []string{"Action"}) {
		t.Errorf("Genres = %v", got.Genres)
	}
}

func TestRefreshKeepsMediaTypeAndOwnership(t *testing.T) {
	existing := MapSearchResult(catalog.Result{ID: 1399, Name: "GoT", MediaType: "tv"}, library.StateWatched)
	existing.Ownership = library.Watched(3)

	got := Refresh(existing, &catalog.Detail{ID: 1399, Name: "Game of Thrones", Genres: []catalog.Genre{{Name: "Drama"}}})

	if got.MediaType != library.MediaSeries {
		t.Errorf("MediaType = %s, want series", got.MediaType)
	}
	if got.Ownership != library.Watched(3) {
		t.Errorf("Ownership = %s, want watched (3/5)", got.Ownership)
	}
	if got.Title != "Game of Thrones" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestNeedsEnrichment(t *testing.T) {
	tests := []struct {
		name   string
		record library.Record
		want   bool
	}{
		{"planned without genres", library.Record{ID: 1, Ownership: library.Planned()}, true},
		{"watched with empty genres", library.Record{ID: 1, Genres: []string{}, Ownership: library.Watched(2)}, true},
		{"planned with genres", library.Record{ID: 1, Genres: []string{"Drama"}, Ownership: library.Planned()}, false},
		{"transient record", library.Record{ID: 1, Ownership: library.NotInLibrary()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsEnrichment(tt.record); got != tt.want {
				t.Errorf("NeedsEnrichment() = %v, want %v", got, tt.want)
			}
		})
	}
}
