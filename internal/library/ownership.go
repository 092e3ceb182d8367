package library

import (
	"fmt"

	"github.com/franz/movie-checklist/internal/util"
)

// State is the user-owned status of a title
type State int

const (
	// StateNone marks a transient record the user has viewed but not added
	StateNone State = iota
	// StatePlanned marks a title on the planned list
	StatePlanned
	// StateWatched marks a watched title, optionally rated
	StateWatched
)

// String returns the persisted name of the state
func (s State) String() string {
	switch s {
	case StatePlanned:
		return "planned"
	case StateWatched:
		return "watched"
	default:
		return "none"
	}
}

// ParseState parses a persisted state name
func ParseState(s string) (State, error) {
	switch s {
	case "planned":
		return StatePlanned, nil
	case "watched":
		return StateWatched, nil
	case "", "none":
		return StateNone, nil
	}
	return StateNone, fmt.Errorf("unknown status %q", s)
}

// Rating is a personal star rating. The zero value means "not rated".
type Rating int

const (
	NoRating  Rating = 0
	MinRating Rating = 1
	MaxRating Rating = 5
)

// Valid reports whether r is a real rating (1-5)
func (r Rating) Valid() bool {
	return r >= MinRating && r <= MaxRating
}

// CheckRating accepts NoRating or a valid rating
func CheckRating(r Rating) error {
	if r == NoRating || r.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %d (must be %d-%d)", util.ErrInvalidRating, r, MinRating, MaxRating)
}

// Ownership is the user-owned part of a record: not in library, planned,
// or watched with an optional rating. A rating can only exist on a watched
// title; the constructors are the only way to build a value.
type Ownership struct {
	state  State
	rating Rating
}

// NotInLibrary is the ownership of a transient record
func NotInLibrary() Ownership {
	return Ownership{state: StateNone}
}

// Planned is the ownership of a title on the planned list
func Planned() Ownership {
	return Ownership{state: StatePlanned}
}

// Watched is the ownership of a watched title. Pass NoRating for unrated.
// Out-of-range ratings are dropped; validate input with CheckRating first.
func Watched(r Rating) Ownership {
	if !r.Valid() {
		r = NoRating
	}
	return Ownership{state: StateWatched, rating: r}
}

// OwnershipFor returns the unrated ownership for a state
func OwnershipFor(s State) Ownership {
	switch s {
	case StatePlanned:
		return Planned()
	case StateWatched:
		return Watched(NoRating)
	default:
		return NotInLibrary()
	}
}

// State returns the status
func (o Ownership) State() State {
	return o.state
}

// Rating returns the rating and whether one is set
func (o Ownership) Rating() (Rating, bool) {
	return o.rating, o.rating != NoRating
}

// InLibrary reports whether the title has been added by the user
func (o Ownership) InLibrary() bool {
	return o.state != StateNone
}

func (o Ownership) String() string {
	if o.state == StateWatched && o.rating != NoRating {
		return fmt.Sprintf("watched (%d/5)", o.rating)
	}
	return o.state.String()
}

// AddToPlanned moves a title that is not yet in the library onto the planned list
func AddToPlanned(o Ownership) (Ownership, error) {
	if o.state != StateNone {
		return o, fmt.Errorf("%w: add to planned from %s", util.ErrInvalidTransition, o.state)
	}
	return Planned(), nil
}

// MarkWatched marks a title as watched from any status
func MarkWatched(o Ownership, r Rating) (Ownership, error) {
	if err := CheckRating(r); err != nil {
		return o, err
	}
	return Watched(r), nil
}

// MarkPlanned moves a watched title back to planned, clearing its rating
func MarkPlanned(o Ownership) (Ownership, error) {
	if o.state != StateWatched {
		return o, fmt.Errorf("%w: mark planned from %s", util.ErrInvalidTransition, o.state)
	}
	return Planned(), nil
}

// UpdateRating changes the rating of a watched title
func UpdateRating(o Ownership, r Rating) (Ownership, error) {
	if o.state != StateWatched {
		return o, fmt.Errorf("%w: rate from %s", util.ErrInvalidTransition, o.state)
	}
	if !r.Valid() {
		return o, fmt.Errorf("%w: %d (must be %d-%d)", util.ErrInvalidRating, r, MinRating, MaxRating)
	}
	return Watched(r), nil
}
