package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Sync statuses shared by catalog harvests and record-acquisition runs.
const (
	SyncRunning             = "running"
	SyncCompleted           = "completed"
	SyncCompletedWithErrors = "completed_with_errors"
	SyncFailed              = "failed"
)

// CatalogSyncEntry is the audit row for one (catalog, year) harvest.
type CatalogSyncEntry struct {
	Catalog   string
	Year      int
	StartTime time.Time
	EndTime   time.Time
	Processed int
	Inserted  int
	Updated   int
	Status    string
	ErrorMsg  string
}

// LogCatalogSync records the outcome of one harvest unit. Rerunning the same
// (catalog, year) replaces the previous row; the original start_time is kept
// when the entry carries none.
func (s *Store) LogCatalogSync(ctx context.Context, e CatalogSyncEntry) error {
	startTime := any(nil)
	if !e.StartTime.IsZero() {
		startTime = e.StartTime.UTC().Format(timeFormat)
	}
	endTime := any(nil)
	if !e.EndTime.IsZero() {
		endTime = e.EndTime.UTC().Format(timeFormat)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO catalog_sync_log
		(catalog, year, start_time, end_time, records_processed, records_inserted,
		 records_updated, status, error_message)
		VALUES (?, ?,
		        COALESCE(?, (SELECT start_time FROM catalog_sync_log WHERE catalog = ? AND year = ?)),
		        ?, ?, ?, ?, ?, ?)`,
		e.Catalog, e.Year,
		startTime, e.Catalog, e.Year,
		endTime, e.Processed, e.Inserted, e.Updated, e.Status, nullableString(e.ErrorMsg))
	if err != nil {
		return fmt.Errorf("log catalog sync %s/%d: %w", e.Catalog, e.Year, err)
	}
	return nil
}

// GetCatalogSync fetches the latest audit row for (catalog, year). Returns
// ErrNotFound when the unit was never harvested.
func (s *Store) GetCatalogSync(ctx context.Context, catalog string, year int) (CatalogSyncEntry, error) {
	var e CatalogSyncEntry
	var startTime, endTime, errMsg sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT catalog, year, start_time, end_time, records_processed,
		       records_inserted, records_updated, status, error_message
		FROM catalog_sync_log WHERE catalog = ? AND year = ?`, catalog, year).Scan(
		&e.Catalog, &e.Year, &startTime, &endTime, &e.Processed,
		&e.Inserted, &e.Updated, &e.Status, &errMsg)
	if err == sql.ErrNoRows {
		return CatalogSyncEntry{}, ErrNotFound
	}
	if err != nil {
		return CatalogSyncEntry{}, err
	}

	e.StartTime = parseStoredTime(startTime)
	e.EndTime = parseStoredTime(endTime)
	e.ErrorMsg = errMsg.String
	return e, nil
}

// StartRecordSync opens an audit row for a record-acquisition run and
// returns its row id. Each run gets its own row, so concurrent runs never
// clobber each other's progress.
func (s *Store) StartRecordSync(ctx context.Context, runID, catalog string, year int, start time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO record_sync_sessions (run_id, catalog, year, start_time, status)
		VALUES (?, ?, ?, ?, ?)`,
		runID, catalog, year, start.UTC().Format(timeFormat), SyncRunning)
	if err != nil {
		return 0, fmt.Errorf("start record sync %s: %w", runID, err)
	}
	return res.LastInsertId()
}

// FinishRecordSync closes a run's audit row with its final counters and
// status.
func (s *Store) FinishRecordSync(ctx context.Context, id int64, processed, inserted, updated int, status, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE record_sync_sessions
		SET end_time = ?, records_processed = ?, records_inserted = ?,
		    records_updated = ?, status = ?, error_message = ?
		WHERE id = ?`,
		clock.Now().UTC().Format(timeFormat), processed, inserted, updated,
		status, nullableString(errMsg), id)
	if err != nil {
		return fmt.Errorf("finish record sync %d: %w", id, err)
	}
	return nil
}

// RecordSyncSession is the audit row for one record-acquisition run.
type RecordSyncSession struct {
	ID        int64
	RunID     string
	Catalog   string
	Year      int
	StartTime time.Time
	EndTime   time.Time
	Processed int
	Inserted  int
	Updated   int
	Status    string
	ErrorMsg  string
}

// GetRecordSync fetches one run's audit row by id.
func (s *Store) GetRecordSync(ctx context.Context, id int64) (RecordSyncSession, error) {
	var r RecordSyncSession
	var startTime, endTime, errMsg sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, catalog, year, start_time, end_time,
		       records_processed, records_inserted, records_updated, status, error_message
		FROM record_sync_sessions WHERE id = ?`, id).Scan(
		&r.ID, &r.RunID, &r.Catalog, &r.Year, &startTime, &endTime,
		&r.Processed, &r.Inserted, &r.Updated, &r.Status, &errMsg)
	if err == sql.ErrNoRows {
		return RecordSyncSession{}, ErrNotFound
	}
	if err != nil {
		return RecordSyncSession{}, err
	}

	r.StartTime = parseStoredTime(startTime)
	r.EndTime = parseStoredTime(endTime)
	r.ErrorMsg = errMsg.String
	return r, nil
}

func parseStoredTime(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
