package library

import (
	"errors"
	"testing"

	"github.com/franz/movie-checklist/internal/util"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Ownership
		apply   func(Ownership) (Ownership, error)
		want    Ownership
		wantErr error
	}{
		{
			name:  "add to planned from none",
			from:  NotInLibrary(),
			apply: AddToPlanned,
			want:  Planned(),
		},
		{
			name:    "add to planned from planned",
			from:    Planned(),
			apply:   AddToPlanned,
			want:    Planned(),
			wantErr: util.ErrInvalidTransition,
		},
		{
			name:    "add to planned from watched",
			from:    Watched(4),
			apply:   AddToPlanned,
			want:    Watched(4),
			wantErr: util.ErrInvalidTransition,
		},
		{
			name:  "watch from none",
			from:  NotInLibrary(),
			apply: func(o Ownership) (Ownership, error) { return MarkWatched(o, 5) },
			want:  Watched(5),
		},
		{
			name:  "watch from planned unrated",
			from:  Planned(),
			apply: func(o Ownership) (Ownership, error) { return MarkWatched(o, NoRating) },
			want:  Watched(NoRating),
		},
		{
			name:    "watch with bad rating",
			from:    Planned(),
			apply:   func(o Ownership) (Ownership, error) { return MarkWatched(o, 9) },
			want:    Planned(),
			wantErr: util.ErrInvalidRating,
		},
		{
			name:  "replan clears rating",
			from:  Watched(3),
			apply: MarkPlanned,
			want:  Planned(),
		},
		{
			name:    "replan from planned",
			from:    Planned(),
			apply:   MarkPlanned,
			want:    Planned(),
			wantErr: util.ErrInvalidTransition,
		},
		{
			name:  "rate watched",
			from:  Watched(2),
			apply: func(o Ownership) (Ownership, error) { return UpdateRating(o, 4) },
			want:  Watched(4),
		},
		{
			name:    "rate planned",
			from:    Planned(),
			apply:   func(o Ownership) (Ownership, error) { return UpdateRating(o, 4) },
			want:    Planned(),
			wantErr: util.ErrInvalidTransition,
		},
		{
			name:    "rate zero",
			from:    Watched(2),
			apply:   func(o Ownership) (Ownership, error) { return UpdateRating(o, NoRating) },
			want:    Watched(2),
			wantErr: util.ErrInvalidRating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.apply(tt.from)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransitionsIdempotent(t *testing.T) {
	once, _ := MarkWatched(Planned(), 4)
	twice, _ := MarkWatched(once, 4)
	if once != twice {
		t.Errorf("MarkWatched not idempotent: %v vs %v", once, twice)
	}

	rated, _ := UpdateRating(Watched(1), 3)
	rerated, _ := UpdateRating(rated, 3)
	if rated != rerated {
		t.Errorf("UpdateRating not idempotent: %v vs %v", rated, rerated)
	}
}

func TestPlannedNeverCarriesRating(t *testing.T) {
	for r := NoRating; r <= MaxRating; r++ {
		o, err := MarkPlanned(Watched(r))
		if err != nil {
			t.Fatalf("MarkPlanned failed: %v", err)
		}
		if _, ok := o.Rating(); ok {
			t.Errorf("planned ownership kept rating from Watched(%d)", r)
		}
	}
}

func TestWatchedDropsInvalidRating(t *testing.T) {
	if _, ok := Watched(7).Rating(); ok {
		t.Error("Watched(7) should not carry a rating")
	}
	if r, ok := Watched(5).Rating(); !ok || r != 5 {
		t.Errorf("Watched(5).Rating() = %d, %v", r, ok)
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []State{StateNone, StatePlanned, StateWatched} {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseState("archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}
