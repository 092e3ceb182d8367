// Package library holds the locally owned library record and the rules for
// changing its user-owned status.
package library

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MediaType distinguishes movies from series
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaSeries MediaType = "series"
)

// ParseMediaType accepts "movie", "series" and the catalog's "tv"
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return MediaMovie, nil
	case "series", "tv":
		return MediaSeries, nil
	}
	return "", fmt.Errorf("unknown media type %q (want movie or series)", s)
}

// CatalogType returns the catalog's name for the media type
func (m MediaType) CatalogType() string {
	if m == MediaSeries {
		return "tv"
	}
	return "movie"
}

// Record is a library entry keyed by catalog id. Descriptive fields come
// from the catalog and may be refreshed at any time; Ownership belongs to
// the user and survives every refresh.
type Record struct {
	ID           int64
	Title        string
	Overview     string
	PosterPath   string
	BackdropPath string
	ReleaseDate  string
	VoteAverage  float64
	Genres       []string
	MediaType    MediaType
	Ownership    Ownership

	// Maintained by the store
	AddedAt   time.Time
	UpdatedAt time.Time
}

// WithOwnership returns a copy of r with the given ownership
func (r Record) WithOwnership(o Ownership) Record {
	r.Genres = slices.Clone(r.Genres)
	r.Ownership = o
	return r
}

// Equal compares every field except the store timestamps
func (r Record) Equal(other Record) bool {
	return r.ID == other.ID &&
		r.Title == other.Title &&
		r.Overview == other.Overview &&
		r.PosterPath == other.PosterPath &&
		r.BackdropPath == other.BackdropPath &&
		r.ReleaseDate == other.ReleaseDate &&
		r.VoteAverage == other.VoteAverage &&
		slices.Equal(r.Genres, other.Genres) &&
		r.MediaType == other.MediaType &&
		r.Ownership == other.Ownership
}

// Year returns the release year, or "" when unknown
func (r Record) Year() string {
	if len(r.ReleaseDate) >= 4 {
		return r.ReleaseDate[:4]
	}
	return ""
}
