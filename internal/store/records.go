package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

const recordColumns = `
	id, title, overview, poster_path, backdrop_path, release_date,
	vote_average, genres_json, media_type, status, user_rating,
	added_at, updated_at`

// Filter narrows a local title search. Zero values match everything.
type Filter struct {
	Text      string            // substring of the title, case folded
	Status    library.State     // StateNone matches both lists
	MediaType library.MediaType // "" matches movies and series
}

// InsertOrReplace stores a record, keeping the original added_at when the
// id already exists
func (s *Store) InsertOrReplace(ctx context.Context, rec library.Record) error {
	args, err := s.recordArgs(rec)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()

	err = util.Retry(ctx, nil, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO library (
				id, title, title_key, overview, poster_path, backdrop_path, release_date,
				vote_average, genres_json, media_type, status, user_rating,
				added_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				title_key = excluded.title_key,
				overview = excluded.overview,
				poster_path = excluded.poster_path,
				backdrop_path = excluded.backdrop_path,
				release_date = excluded.release_date,
				vote_average = excluded.vote_average,
				genres_json = excluded.genres_json,
				media_type = excluded.media_type,
				status = excluded.status,
				user_rating = excluded.user_rating,
				updated_at = excluded.updated_at
		`, append(args, now, now)...)
		return err
	}, "library insert")
	if err != nil {
		return localStoreError(fmt.Sprintf("insert record %d", rec.ID), err)
	}

	s.hub.notify()
	return nil
}

// Insert stores a record that is not in the library yet. Returns
// util.ErrExists if the id is already stored; the stored row is left as is.
func (s *Store) Insert(ctx context.Context, rec library.Record) error {
	args, err := s.recordArgs(rec)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()

	var affected int64
	err = util.Retry(ctx, nil, func() error {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO library (
				id, title, title_key, overview, poster_path, backdrop_path, release_date,
				vote_average, genres_json, media_type, status, user_rating,
				added_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, append(args, now, now)...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	}, "library insert")
	if err != nil {
		return localStoreError(fmt.Sprintf("insert record %d", rec.ID), err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record %d", util.ErrExists, rec.ID)
	}

	s.hub.notify()
	return nil
}

// UpdateCatalogFields writes the catalog-owned columns of rec to an
// existing record. Status and rating are never touched, so a refresh
// cannot undo a user action stored in the meantime. Returns util.ErrNotFound
// if the id is not in the library.
func (s *Store) UpdateCatalogFields(ctx context.Context, rec library.Record) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", util.ErrInvalidRecord, rec.ID)
	}
	genres := rec.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}
	now := s.now().UnixMilli()

	var affected int64
	err = util.Retry(ctx, nil, func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE library SET
				title = ?, title_key = ?, overview = ?, poster_path = ?, backdrop_path = ?,
				release_date = ?, vote_average = ?, genres_json = ?, updated_at = ?
			WHERE id = ?
		`, rec.Title, library.TitleKey(rec.Title), rec.Overview, rec.PosterPath, rec.BackdropPath,
			rec.ReleaseDate, rec.VoteAverage, string(genresJSON), now, rec.ID)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	}, "library refresh")
	if err != nil {
		return localStoreError(fmt.Sprintf("refresh record %d", rec.ID), err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %w: record %d", util.ErrLocalStore, util.ErrNotFound, rec.ID)
	}

	s.hub.notify()
	return nil
}

// Update overwrites an existing record. Returns util.ErrNotFound if the id
// is not in the library.
func (s *Store) Update(ctx context.Context, rec library.Record) error {
	args, err := s.recordArgs(rec)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()

	var affected int64
	err = util.Retry(ctx, nil, func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE library SET
				title = ?, title_key = ?, overview = ?, poster_path = ?, backdrop_path = ?,
				release_date = ?, vote_average = ?, genres_json = ?, media_type = ?,
				status = ?, user_rating = ?, updated_at = ?
			WHERE id = ?
		`, append(args[1:], now, rec.ID)...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	}, "library update")
	if err != nil {
		return localStoreError(fmt.Sprintf("update record %d", rec.ID), err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %w: record %d", util.ErrLocalStore, util.ErrNotFound, rec.ID)
	}

	s.hub.notify()
	return nil
}

// Delete removes a record. Returns util.ErrNotFound if the id is not in
// the library.
func (s *Store) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := util.Retry(ctx, nil, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM library WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	}, "library delete")
	if err != nil {
		return localStoreError(fmt.Sprintf("delete record %d", id), err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record %d", util.ErrNotFound, id)
	}

	s.hub.notify()
	return nil
}

// Get retrieves a record by catalog id, or nil if it is not in the library
func (s *Store) Get(ctx context.Context, id int64) (*library.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM library WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, localStoreError(fmt.Sprintf("get record %d", id), err)
	}

	return rec, nil
}

// ListByStatus retrieves the records of one list ordered by title
func (s *Store) ListByStatus(ctx context.Context, state library.State) ([]library.Record, error) {
	if !library.OwnershipFor(state).InLibrary() {
		return nil, fmt.Errorf("%w: no list for status %s", util.ErrInvalidRecord, state)
	}
	return s.Search(ctx, Filter{Status: state})
}

// ListAll retrieves every record ordered by title
func (s *Store) ListAll(ctx context.Context) ([]library.Record, error) {
	return s.Search(ctx, Filter{})
}

// Search retrieves records matching the filter ordered by title
func (s *Store) Search(ctx context.Context, f Filter) ([]library.Record, error) {
	var where []string
	var args []any

	if key := library.TitleKey(f.Text); key != "" {
		where = append(where, `title_key LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(key)+"%")
	}
	if f.Status != library.StateNone {
		where = append(where, "status = ?")
		args = append(args, f.Status.String())
	}
	if f.MediaType != "" {
		where = append(where, "media_type = ?")
		args = append(args, string(f.MediaType))
	}

	query := `SELECT ` + recordColumns + ` FROM library`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY title_key, id"

	return s.queryRecords(ctx, "search records", query, args...)
}

// ListNeedingEnrichment retrieves records with no genres and an id above
// afterID, in id order
func (s *Store) ListNeedingEnrichment(ctx context.Context, afterID int64) ([]library.Record, error) {
	return s.queryRecords(ctx, "list records needing enrichment", `
		SELECT `+recordColumns+` FROM library
		WHERE genres_json = '[]' AND id > ?
		ORDER BY id
	`, afterID)
}

// Counts returns the number of records per status
func (s *Store) Counts(ctx context.Context) (map[library.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM library GROUP BY status`)
	if err != nil {
		return nil, localStoreError("count records", err)
	}
	defer rows.Close()

	counts := map[library.State]int{
		library.StatePlanned: 0,
		library.StateWatched: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, localStoreError("scan count", err)
		}
		state, err := library.ParseState(status)
		if err != nil {
			return nil, localStoreError("scan count", err)
		}
		counts[state] = n
	}

	if err := rows.Err(); err != nil {
		return nil, localStoreError("count records", err)
	}
	return counts, nil
}

func (s *Store) queryRecords(ctx context.Context, op, query string, args ...any) ([]library.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, localStoreError(op, err)
	}
	defer rows.Close()

	records := []library.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, localStoreError(op, err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, localStoreError(op, err)
	}
	return records, nil
}

// recordArgs validates rec and returns its column values in recordColumns
// order, without the timestamps
func (s *Store) recordArgs(rec library.Record) ([]any, error) {
	if rec.ID <= 0 {
		return nil, fmt.Errorf("%w: id must be positive, got %d", util.ErrInvalidRecord, rec.ID)
	}
	if !rec.Ownership.InLibrary() {
		return nil, fmt.Errorf("%w: record %d is not in the library", util.ErrInvalidRecord, rec.ID)
	}
	if rec.MediaType != library.MediaMovie && rec.MediaType != library.MediaSeries {
		return nil, fmt.Errorf("%w: record %d has media type %q", util.ErrInvalidRecord, rec.ID, rec.MediaType)
	}

	genres := rec.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genres: %w", err)
	}

	var rating sql.NullInt64
	if r, ok := rec.Ownership.Rating(); ok {
		rating = sql.NullInt64{Int64: int64(r), Valid: true}
	}

	return []any{
		rec.ID, rec.Title, library.TitleKey(rec.Title), rec.Overview, rec.PosterPath,
		rec.BackdropPath, rec.ReleaseDate, rec.VoteAverage, string(genresJSON),
		string(rec.MediaType), rec.Ownership.State().String(), rating,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*library.Record, error) {
	var rec library.Record
	var genresJSON, mediaType, status string
	var rating sql.NullInt64
	var addedAt, updatedAt int64

	err := row.Scan(
		&rec.ID, &rec.Title, &rec.Overview, &rec.PosterPath, &rec.BackdropPath, &rec.ReleaseDate,
		&rec.VoteAverage, &genresJSON, &mediaType, &status, &rating,
		&addedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(genresJSON), &rec.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres of record %d: %w", rec.ID, err)
	}
	if rec.Genres == nil {
		rec.Genres = []string{}
	}

	rec.MediaType, err = library.ParseMediaType(mediaType)
	if err != nil {
		return nil, err
	}

	state, err := library.ParseState(status)
	if err != nil {
		return nil, err
	}
	rec.Ownership = library.OwnershipFor(state)
	if state == library.StateWatched && rating.Valid {
		rec.Ownership = library.Watched(library.Rating(rating.Int64))
	}

	rec.AddedAt = time.UnixMilli(addedAt)
	rec.UpdatedAt = time.UnixMilli(updatedAt)

	return &rec, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
