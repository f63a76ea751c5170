package store

import (
	"database/sql"
	"time"
)

// IngestRun represents a single upstream fetch for auditing.
type IngestRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Source            string // "open-meteo"
	Endpoint          string // "forecast", "geocode"
	LocationID        sql.NullString
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	Attempts          sql.NullInt64
	RecordsParsed     sql.NullInt64
	QualityFlags      sql.NullString
	Success           bool
	ErrorMessage      sql.NullString
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(source, endpoint string, locationID *string) (*IngestRun, error) {
	run := &IngestRun{
		StartedAt: s.now().UTC(),
		Source:    source,
		Endpoint:  endpoint,
	}
	if locationID != nil {
		run.LocationID = sql.NullString{String: *locationID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (started_at, source, endpoint, location_id, success)
		VALUES (?, ?, ?, ?, FALSE)
	`, run.StartedAt, run.Source, run.Endpoint, run.LocationID)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: s.now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			attempts = ?,
			records_parsed = ?,
			quality_flags = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.Attempts,
		run.RecordsParsed, run.QualityFlags, run.Success, run.ErrorMessage, run.ID)
	return err
}

// IngestHealthSummary is one day of fetches for a source and endpoint.
type IngestHealthSummary struct {
	Date         string
	Source       string
	Endpoint     string
	TotalRuns    int
	SuccessRuns  int
	FailedRuns   int
	TotalRecords int64
	FlaggedRuns  int
}

// GetIngestHealth returns ingest health summaries for the last N days.
func (s *Store) GetIngestHealth(days int) ([]IngestHealthSummary, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			source,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			COALESCE(SUM(records_parsed), 0) as total_records,
			SUM(CASE WHEN quality_flags IS NOT NULL AND quality_flags != '' THEN 1 ELSE 0 END) as flagged_runs
		FROM ingest_runs
		WHERE started_at > ?
		GROUP BY date, source, endpoint
		ORDER BY date DESC, source, endpoint
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestHealthSummary
	for rows.Next() {
		var h IngestHealthSummary
		if err := rows.Scan(&h.Date, &h.Source, &h.Endpoint, &h.TotalRuns,
			&h.SuccessRuns, &h.FailedRuns, &h.TotalRecords, &h.FlaggedRuns); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentIngestErrors returns recent failed ingest runs.
func (s *Store) GetRecentIngestErrors(limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, source, endpoint, location_id,
			   http_status, response_size_bytes, attempts, records_parsed,
			   quality_flags, success, error_message
		FROM ingest_runs
		WHERE success = FALSE
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Endpoint,
			&r.LocationID, &r.HTTPStatus, &r.ResponseSizeBytes, &r.Attempts,
			&r.RecordsParsed, &r.QualityFlags, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
