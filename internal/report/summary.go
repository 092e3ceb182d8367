package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/reconcile"
	"github.com/franz/movie-checklist/internal/util"
)

// RecordSource lists the library for the summary
type RecordSource interface {
	ListAll(ctx context.Context) ([]library.Record, error)
}

// SummaryReport represents a complete library summary
type SummaryReport struct {
	GeneratedAt time.Time

	// Library statistics
	Planned         int
	Watched         int
	Movies          int
	Series          int
	Rated           int
	AverageRating   float64
	RatingHistogram [library.MaxRating + 1]int // index = stars, 0 = unrated
	NeedsEnrichment int

	// Details
	TopGenres       []GenreCount
	RecentlyWatched []library.Record
	TopErrors       []ErrorSummary

	// Metadata
	DatabasePath  string
	EventLogPaths []string
}

// GenreCount is a genre with the number of titles carrying it
type GenreCount struct {
	Genre string
	Count int
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport creates a summary report from the library and
// event logs
func GenerateSummaryReport(ctx context.Context, src RecordSource, eventLogPaths []string) (*SummaryReport, error) {
	records, err := src.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	report := &SummaryReport{
		GeneratedAt:     time.Now(),
		EventLogPaths:   eventLogPaths,
		TopGenres:       make([]GenreCount, 0),
		RecentlyWatched: make([]library.Record, 0),
		TopErrors:       make([]ErrorSummary, 0),
	}

	ratingSum := 0
	var watched []library.Record
	for _, rec := range records {
		switch rec.Ownership.State() {
		case library.StatePlanned:
			report.Planned++
		case library.StateWatched:
			report.Watched++
			watched = append(watched, rec)
		}

		if rec.MediaType == library.MediaSeries {
			report.Series++
		} else {
			report.Movies++
		}

		if rec.Ownership.State() == library.StateWatched {
			r, ok := rec.Ownership.Rating()
			report.RatingHistogram[r]++
			if ok {
				report.Rated++
				ratingSum += int(r)
			}
		}

		if reconcile.NeedsEnrichment(rec) {
			report.NeedsEnrichment++
		}
	}

	if report.Rated > 0 {
		report.AverageRating = float64(ratingSum) / float64(report.Rated)
	}

	report.TopGenres = gatherTopGenres(records, 10)

	sort.Slice(watched, func(i, j int) bool {
		return watched[i].UpdatedAt.After(watched[j].UpdatedAt)
	})
	if len(watched) > 10 {
		watched = watched[:10]
	}
	report.RecentlyWatched = append(report.RecentlyWatched, watched...)

	report.TopErrors = gatherTopErrors(eventLogPaths, 10)

	return report, nil
}

// gatherTopGenres counts genres across the library
func gatherTopGenres(records []library.Record, limit int) []GenreCount {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, g := range rec.Genres {
			counts[g]++
		}
	}

	genres := make([]GenreCount, 0, len(counts))
	for g, n := range counts {
		genres = append(genres, GenreCount{Genre: g, Count: n})
	}

	// Most common first, ties alphabetical
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Count != genres[j].Count {
			return genres[i].Count > genres[j].Count
		}
		return genres[i].Genre < genres[j].Genre
	})

	if len(genres) > limit {
		genres = genres[:limit]
	}
	return genres
}

// gatherTopErrors retrieves the most common errors from the event logs.
// Unreadable logs are skipped.
func gatherTopErrors(paths []string, limit int) []ErrorSummary {
	errorCounts := make(map[string]int)
	for _, path := range paths {
		events, err := ReadEvents(path)
		if err != nil {
			util.DebugLog("Skipping event log %s: %v", path, err)
			continue
		}
		for _, e := range events {
			if e.Error != "" {
				errorCounts[e.Error]++
			}
		}
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for err, count := range errorCounts {
		errors = append(errors, ErrorSummary{
			Error: err,
			Count: count,
		})
	}

	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}

	return errors
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	// Header
	md.WriteString("# Movie Checklist - Library Summary\n\n")
	fmt.Fprintf(&md, "**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	if report.DatabasePath != "" {
		fmt.Fprintf(&md, "**Database:** `%s`\n\n", report.DatabasePath)
	}
	if len(report.EventLogPaths) > 0 {
		fmt.Fprintf(&md, "**Event Logs:** %d\n\n", len(report.EventLogPaths))
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	fmt.Fprintf(&md, "| Planned | %d |\n", report.Planned)
	fmt.Fprintf(&md, "| Watched | %d |\n", report.Watched)
	fmt.Fprintf(&md, "| Movies | %d |\n", report.Movies)
	fmt.Fprintf(&md, "| Series | %d |\n", report.Series)
	if report.NeedsEnrichment > 0 {
		fmt.Fprintf(&md, "| Missing Details | %d |\n", report.NeedsEnrichment)
	}
	md.WriteString("\n")

	// Ratings
	if report.Watched > 0 {
		md.WriteString("## ⭐ Ratings\n\n")
		md.WriteString("| Stars | Titles |\n")
		md.WriteString("|-------|--------|\n")
		for stars := library.MaxRating; stars >= library.MinRating; stars-- {
			fmt.Fprintf(&md, "| %s | %d |\n", strings.Repeat("★", int(stars)), report.RatingHistogram[stars])
		}
		fmt.Fprintf(&md, "| unrated | %d |\n", report.RatingHistogram[library.NoRating])
		if report.Rated > 0 {
			fmt.Fprintf(&md, "\n**Average:** %.1f / %d\n", report.AverageRating, library.MaxRating)
		}
		md.WriteString("\n")
	}

	// Genres
	if len(report.TopGenres) > 0 {
		md.WriteString("## 🎭 Top Genres\n\n")
		md.WriteString("| Genre | Titles |\n")
		md.WriteString("|-------|--------|\n")
		for _, g := range report.TopGenres {
			fmt.Fprintf(&md, "| %s | %d |\n", g.Genre, g.Count)
		}
		md.WriteString("\n")
	}

	// Recently watched
	if len(report.RecentlyWatched) > 0 {
		md.WriteString("## 🎬 Recently Watched\n\n")
		for i, rec := range report.RecentlyWatched {
			fmt.Fprintf(&md, "%d. **%s**", i+1, rec.Title)
			if year := rec.Year(); year != "" {
				fmt.Fprintf(&md, " (%s)", year)
			}
			if r, ok := rec.Ownership.Rating(); ok {
				fmt.Fprintf(&md, " %s", strings.Repeat("★", int(r)))
			}
			if !rec.UpdatedAt.IsZero() {
				fmt.Fprintf(&md, " · %s", humanize.RelTime(rec.UpdatedAt, report.GeneratedAt, "ago", "from now"))
			}
			md.WriteString("\n")
		}
		md.WriteString("\n")
	}

	// Errors
	if len(report.TopErrors) > 0 {
		md.WriteString("## ⚠️ Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			fmt.Fprintf(&md, "| %d | %s |\n", err.Count, err.Error)
		}
		md.WriteString("\n")
	}

	// Footer
	md.WriteString("---\n\n")
	md.WriteString("*Generated by [mcl](https://github.com/franz/movie-checklist) - Movie Checklist*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
