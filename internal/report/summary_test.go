package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/movie-checklist/internal/library"
)

type staticSource struct {
	records []library.Record
	err     error
}

func (s *staticSource) ListAll(ctx context.Context) ([]library.Record, error) {
	return s.records, s.err
}

func testLibrary() []library.Record {
	now := time.Now()
	return []library.Record{
		{ID: 1, Title: "Alien", MediaType: library.MediaMovie, ReleaseDate: "1979-05-25", Genres: []string{"Horror", "Science Fiction"}, Ownership: library.Watched(5), UpdatedAt: now.Add(-time.Hour)},
		{ID: 2, Title: "Brazil", MediaType: library.MediaMovie, Genres: []string{"Science Fiction"}, Ownership: library.Watched(3), UpdatedAt: now.Add(-48 * time.Hour)},
		{ID: 3, Title: "Dark", MediaType: library.MediaSeries, Genres: []string{}, Ownership: library.Watched(library.NoRating), UpdatedAt: now},
		{ID: 4, Title: "Heat", MediaType: library.MediaMovie, Genres: []string{}, Ownership: library.Planned()},
	}
}

func TestGenerateSummaryReport(t *testing.T) {
	report, err := GenerateSummaryReport(context.Background(), &staticSource{records: testLibrary()}, nil)
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if report.Planned != 1 || report.Watched != 3 {
		t.Errorf("Expected 1 planned and 3 watched, got %d and %d", report.Planned, report.Watched)
	}
	if report.Movies != 3 || report.Series != 1 {
		t.Errorf("Expected 3 movies and 1 series, got %d and %d", report.Movies, report.Series)
	}
	if report.Rated != 2 {
		t.Errorf("Expected 2 rated, got %d", report.Rated)
	}
	if report.AverageRating != 4 {
		t.Errorf("Expected average rating 4, got %.2f", report.AverageRating)
	}
	if report.RatingHistogram[5] != 1 || report.RatingHistogram[3] != 1 || report.RatingHistogram[0] != 1 {
		t.Errorf("Unexpected histogram: %v", report.RatingHistogram)
	}
	if report.NeedsEnrichment != 2 {
		t.Errorf("Expected 2 records needing enrichment, got %d", report.NeedsEnrichment)
	}

	if len(report.TopGenres) != 2 || report.TopGenres[0].Genre != "Science Fiction" || report.TopGenres[0].Count != 2 {
		t.Errorf("Unexpected top genres: %+v", report.TopGenres)
	}

	if len(report.RecentlyWatched) != 3 || report.RecentlyWatched[0].Title != "Dark" {
		t.Errorf("Expected Dark to be most recently watched, got %+v", report.RecentlyWatched)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("Expected GeneratedAt to be set")
	}
}

func TestGenerateSummaryReportSourceError(t *testing.T) {
	_, err := GenerateSummaryReport(context.Background(), &staticSource{err: errors.New("locked")}, nil)
	if err == nil {
		t.Error("Expected error from failing source")
	}
}

func TestGatherTopErrorsFromEventLogs(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	rec := library.Record{ID: 1, Title: "Alien", Ownership: library.Planned()}
	failure := errors.New("catalog details: connection refused")
	logger.LogEnrich(rec, time.Second, failure)
	logger.LogEnrich(rec, time.Second, failure)
	logger.LogAction(EventAdd, rec, errors.New("library store failure"))
	logger.LogAction(EventAdd, rec, nil)
	logger.Close()

	missing := filepath.Join(t.TempDir(), "missing.jsonl")
	report, err := GenerateSummaryReport(context.Background(), &staticSource{}, []string{logger.Path(), missing})
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if len(report.TopErrors) != 2 {
		t.Fatalf("Expected 2 distinct errors, got %+v", report.TopErrors)
	}
	if report.TopErrors[0].Error != failure.Error() || report.TopErrors[0].Count != 2 {
		t.Errorf("Expected most common error first, got %+v", report.TopErrors[0])
	}
}

func TestWriteMarkdownReport(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "reports", "summary.md")

	report, err := GenerateSummaryReport(context.Background(), &staticSource{records: testLibrary()}, nil)
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}
	report.DatabasePath = "/test/mcl.db"
	report.TopErrors = []ErrorSummary{{Error: "Couldn't reach server for details.", Count: 3}}

	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	md := string(content)

	expectedSections := []string{
		"# Movie Checklist - Library Summary",
		"## 📊 Overview",
		"## ⭐ Ratings",
		"## 🎭 Top Genres",
		"## 🎬 Recently Watched",
		"## ⚠️ Top Errors",
		"`/test/mcl.db`",
		"| Missing Details | 2 |",
		"**Alien** (1979) ★★★★★",
		"**Average:** 4.0 / 5",
	}
	for _, section := range expectedSections {
		if !strings.Contains(md, section) {
			t.Errorf("Report missing %q", section)
		}
	}
}

func TestWriteMarkdownReportEmptyLibrary(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "summary.md")

	report := &SummaryReport{GeneratedAt: time.Now()}
	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	content, _ := os.ReadFile(outputPath)
	md := string(content)

	if strings.Contains(md, "## ⭐ Ratings") {
		t.Error("Ratings section should be omitted for an empty library")
	}
	if !strings.Contains(md, "| Planned | 0 |") {
		t.Error("Overview should still list counts")
	}
}
