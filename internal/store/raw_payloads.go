package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
)

// StoreRawPayload gzips and stores an upstream response body. Identical
// bodies are stored once; a duplicate returns 0.
func (s *Store) StoreRawPayload(runID *int64, source, endpoint string, locationID *string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)

	var ingestRunID sql.NullInt64
	if runID != nil {
		ingestRunID = sql.NullInt64{Int64: *runID, Valid: true}
	}
	var locationIDNull sql.NullString
	if locationID != nil {
		locationIDNull = sql.NullString{String: *locationID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads
		(ingest_run_id, fetched_at, source, endpoint, location_id, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, ingestRunID, s.now().UTC(), source, endpoint, locationIDNull, buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRawPayload retrieves and decompresses a stored payload by ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// RawPayloadStats contains storage statistics for raw payloads.
type RawPayloadStats struct {
	TotalCount     int              `json:"totalCount"`
	TotalSizeBytes int64            `json:"totalSizeBytes"`
	CountBySource  map[string]int   `json:"countBySource"`
	SizeBySource   map[string]int64 `json:"sizeBySource"`
}

// GetRawPayloadStats returns storage statistics for raw payloads.
func (s *Store) GetRawPayloadStats() (*RawPayloadStats, error) {
	stats := &RawPayloadStats{
		CountBySource: make(map[string]int),
		SizeBySource:  make(map[string]int64),
	}

	row := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0)
		FROM raw_payloads
	`)
	if err := row.Scan(&stats.TotalCount, &stats.TotalSizeBytes); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT source, COUNT(*), SUM(LENGTH(payload_compressed))
		FROM raw_payloads
		GROUP BY source
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		var size int64
		if err := rows.Scan(&source, &count, &size); err != nil {
			return nil, err
		}
		stats.CountBySource[source] = count
		stats.SizeBySource[source] = size
	}

	return stats, rows.Err()
}

// CleanupOldRawPayloads deletes raw payloads older than retentionDays and
// returns the number removed.
func (s *Store) CleanupOldRawPayloads(retentionDays int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
