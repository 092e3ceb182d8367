// Package reconcile converts catalog payloads into library records and
// merges refreshed catalog data with the user-owned fields of an existing
// record. Everything here is pure: no I/O and no stored state.
package reconcile

import (
	"github.com/franz/movie-checklist/internal/catalog"
	"github.com/franz/movie-checklist/internal/library"
)

// UnknownTitle is used when the catalog sends neither a title nor a name
const UnknownTitle = "Unknown Title"

// MapSearchResult converts a multi search entry into a library record with
// the given default status. Genres stay empty: search results only carry
// genre ids, and names need a detail fetch.
func MapSearchResult(r catalog.Result, status library.State) library.Record {
	return library.Record{
		ID:           r.ID,
		Title:        resolveTitle(r.Title, r.Name),
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  resolveReleaseDate(r.ReleaseDate, r.FirstAirDate),
		VoteAverage:  r.VoteAverage,
		Genres:       []string{},
		MediaType:    ResolveMediaType(r),
		Ownership:    library.OwnershipFor(status),
	}
}

// MapDetail converts a detail payload into a library record with genre
// names. Ownership is always NotInLibrary; callers restore the existing
// ownership with MergeOwnedFields.
func MapDetail(d *catalog.Detail, mediaType library.MediaType) library.Record {
	return library.Record{
		ID:           d.ID,
		Title:        resolveTitle(d.Title, d.Name),
		Overview:     d.Overview,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		ReleaseDate:  resolveReleaseDate(d.ReleaseDate, d.FirstAirDate),
		VoteAverage:  d.VoteAverage,
		Genres:       d.GenreNames(),
		MediaType:    mediaType,
		Ownership:    library.NotInLibrary(),
	}
}

// MergeOwnedFields returns fresh with the existing ownership, whatever the
// mapper set. Every catalog refresh goes through here.
func MergeOwnedFields(fresh library.Record, existing library.Ownership) library.Record {
	return fresh.WithOwnership(existing)
}

// Refresh maps a detail payload over an existing record, keeping its
// ownership and its media type.
func Refresh(existing library.Record, d *catalog.Detail) library.Record {
	return MergeOwnedFields(MapDetail(d, existing.MediaType), existing.Ownership)
}

// NeedsEnrichment reports whether a library record should be re-fetched
// from the catalog. An empty genre list is the signal that the record was
// created from a search result; it cannot tell a title that legitimately
// has no genres apart from one never detail-fetched.
func NeedsEnrichment(r library.Record) bool {
	return r.Ownership.InLibrary() && len(r.Genres) == 0
}

// ResolveMediaType uses the catalog media type, or infers it from the
// title field: movies carry "title", series carry "name".
func ResolveMediaType(r catalog.Result) library.MediaType {
	switch r.MediaType {
	case "movie":
		return library.MediaMovie
	case "tv":
		return library.MediaSeries
	}
	if r.Title != "" {
		return library.MediaMovie
	}
	return library.MediaSeries
}

func resolveTitle(title, name string) string {
	if title != "" {
		return title
	}
	if name != "" {
		return name
	}
	return UnknownTitle
}

func resolveReleaseDate(movieDate, firstAirDate string) string {
	if movieDate != "" {
		return movieDate
	}
	return firstAirDate
}
