package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/report"
	"github.com/franz/movie-checklist/internal/util"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library to a TOML file",
	Long: `Write every library title with its status and rating to TOML.
Use --out - to write to stdout.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("out", "library.toml", "Output file, - for stdout")
}

// exportFile is the TOML document layout
type exportFile struct {
	ExportedAt time.Time     `toml:"exported_at"`
	Titles     []exportEntry `toml:"title"`
}

type exportEntry struct {
	ID          int64     `toml:"id"`
	Title       string    `toml:"title"`
	MediaType   string    `toml:"media_type"`
	Status      string    `toml:"status"`
	Rating      int       `toml:"rating,omitempty"`
	ReleaseDate string    `toml:"release_date,omitempty"`
	Genres      []string  `toml:"genres"`
	VoteAverage float64   `toml:"vote_average,omitempty"`
	Overview    string    `toml:"overview,omitempty"`
	PosterPath  string    `toml:"poster_path,omitempty"`
	AddedAt     time.Time `toml:"added_at"`
	UpdatedAt   time.Time `toml:"updated_at"`
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out, _ := cmd.Flags().GetString("out")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	n, err := exportLibrary(ctx, a.store, w)
	if err != nil {
		return err
	}

	if out != "-" {
		util.SuccessLog("Exported %d %s to %s", n, plural(n, "title", "titles"), out)
	}
	return nil
}

// exportLibrary writes the library as TOML and returns the number of titles
func exportLibrary(ctx context.Context, src report.RecordSource, w io.Writer) (int, error) {
	records, err := src.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	doc := exportFile{ExportedAt: time.Now().UTC().Truncate(time.Second)}
	for _, rec := range records {
		doc.Titles = append(doc.Titles, toExportEntry(rec))
	}

	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	return len(records), nil
}

func toExportEntry(rec library.Record) exportEntry {
	rating, _ := rec.Ownership.Rating()
	return exportEntry{
		ID:          rec.ID,
		Title:       rec.Title,
		MediaType:   string(rec.MediaType),
		Status:      rec.Ownership.State().String(),
		Rating:      int(rating),
		ReleaseDate: rec.ReleaseDate,
		Genres:      rec.Genres,
		VoteAverage: rec.VoteAverage,
		Overview:    rec.Overview,
		PosterPath:  rec.PosterPath,
		AddedAt:     rec.AddedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
}
