package store

import (
	"database/sql"
	"time"
)

// EnrichProgress tracks a batch enrichment run for resumability
type EnrichProgress struct {
	LastProcessedID  int64
	TotalRecords     int
	RecordsProcessed int
	RecordsFailed    int
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// GetEnrichProgress retrieves the progress of an interrupted run, or nil
func (s *Store) GetEnrichProgress() (*EnrichProgress, error) {
	var p EnrichProgress
	var startedAt, updatedAt int64

	err := s.db.QueryRow(`
		SELECT last_processed_id, total_records, records_processed,
		       records_failed, started_at, updated_at
		FROM enrich_progress
		WHERE id = 1
	`).Scan(&p.LastProcessedID, &p.TotalRecords, &p.RecordsProcessed,
		&p.RecordsFailed, &startedAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, localStoreError("get enrich progress", err)
	}

	p.StartedAt = time.UnixMilli(startedAt)
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return &p, nil
}

// InitEnrichProgress starts tracking a new run
func (s *Store) InitEnrichProgress(totalRecords int) error {
	now := s.now().UnixMilli()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO enrich_progress
		(id, last_processed_id, total_records, records_processed, records_failed, started_at, updated_at)
		VALUES (1, 0, ?, 0, 0, ?, ?)
	`, totalRecords, now, now)
	if err != nil {
		return localStoreError("init enrich progress", err)
	}
	return nil
}

// UpdateEnrichProgress records the last record handled by the run
func (s *Store) UpdateEnrichProgress(lastID int64, processed, failed int) error {
	_, err := s.db.Exec(`
		UPDATE enrich_progress
		SET last_processed_id = ?,
		    records_processed = ?,
		    records_failed = ?,
		    updated_at = ?
		WHERE id = 1
	`, lastID, processed, failed, s.now().UnixMilli())
	if err != nil {
		return localStoreError("update enrich progress", err)
	}
	return nil
}

// ClearEnrichProgress removes progress tracking once a run completes
func (s *Store) ClearEnrichProgress() error {
	if _, err := s.db.Exec(`DELETE FROM enrich_progress WHERE id = 1`); err != nil {
		return localStoreError("clear enrich progress", err)
	}
	return nil
}
