package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// UpsertStation stores a station keyed by its code and returns the station's
// row id. Existing stations get their name, coordinates, and network
// refreshed.
func (s *Store) UpsertStation(ctx context.Context, st domain.StationInfo) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM seismic_stations WHERE code = ?", st.Code).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `
				INSERT INTO seismic_stations (code, name, latitude, longitude, network)
				VALUES (?, ?, ?, ?, ?)`,
				st.Code, st.Name, st.Latitude, st.Longitude, st.Network)
			if err != nil {
				return fmt.Errorf("insert station %s: %w", st.Code, err)
			}
			id, err = res.LastInsertId()
			return err
		case err != nil:
			return fmt.Errorf("lookup station %s: %w", st.Code, err)
		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE seismic_stations
				SET name = ?, latitude = ?, longitude = ?, network = ?,
				    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
				WHERE id = ?`,
				st.Name, st.Latitude, st.Longitude, st.Network, id)
			if err != nil {
				return fmt.Errorf("update station %s: %w", st.Code, err)
			}
			return nil
		}
	})
	return id, err
}

// StationIDByCode resolves a station code to its row id. Returns
// ErrNotFound for unknown codes.
func (s *Store) StationIDByCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM seismic_stations WHERE code = ?", code).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return id, err
}

// UpsertAccelerationRecord stores one record keyed by (event_id, station_id)
// and returns its row id. Re-processing an event updates the existing record
// in place rather than duplicating it.
func (s *Store) UpsertAccelerationRecord(ctx context.Context, rec domain.AccelerationRecord) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM acceleration_records WHERE event_id = ? AND station_id = ?",
			rec.EventID, rec.StationID).Scan(&id)

		startTime := any(nil)
		if !rec.StartTime.IsZero() {
			startTime = rec.StartTime.UTC().Format(timeFormat)
		}

		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `
				INSERT INTO acceleration_records
				(event_id, station_id, start_time, num_samples, sampling_frequency,
				 pga_vertical, pga_north, pga_east, baseline_correction, file_path)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.EventID, rec.StationID, startTime, rec.NumSamples, rec.SamplingFrequency,
				rec.PGAVertical, rec.PGANorth, rec.PGAEast, rec.BaselineCorrection,
				nullableString(rec.FilePath))
			if err != nil {
				return fmt.Errorf("insert record %s/%d: %w", rec.EventID, rec.StationID, err)
			}
			id, err = res.LastInsertId()
			return err
		case err != nil:
			return fmt.Errorf("lookup record %s/%d: %w", rec.EventID, rec.StationID, err)
		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE acceleration_records
				SET start_time = ?, num_samples = ?, sampling_frequency = ?,
				    pga_vertical = ?, pga_north = ?, pga_east = ?,
				    baseline_correction = ?, file_path = ?,
				    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
				WHERE id = ?`,
				startTime, rec.NumSamples, rec.SamplingFrequency,
				rec.PGAVertical, rec.PGANorth, rec.PGAEast,
				rec.BaselineCorrection, nullableString(rec.FilePath), id)
			if err != nil {
				return fmt.Errorf("update record %s/%d: %w", rec.EventID, rec.StationID, err)
			}
			return nil
		}
	})
	return id, err
}

// ReplaceSamples swaps the record's full sample series atomically. Indices
// are assigned from slice order, contiguous from zero, so re-parsing a file
// can never leave a mixed series behind.
func (s *Store) ReplaceSamples(ctx context.Context, recordID int64, samples []domain.Sample) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM acceleration_samples WHERE record_id = ?", recordID); err != nil {
			return fmt.Errorf("clear samples for record %d: %w", recordID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO acceleration_samples
			(record_id, sample_index, accel_vertical, accel_north, accel_east)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, sm := range samples {
			if _, err := stmt.ExecContext(ctx, recordID, i, sm.Vertical, sm.North, sm.East); err != nil {
				return fmt.Errorf("insert sample %d for record %d: %w", i, recordID, err)
			}
		}
		return nil
	})
}

// GetAccelerationRecord looks one record up by (event, station). Returns
// ErrNotFound when absent.
func (s *Store) GetAccelerationRecord(ctx context.Context, eventID string, stationID int64) (domain.AccelerationRecord, int64, error) {
	var rec domain.AccelerationRecord
	var id int64
	var startTime, filePath sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, station_id, start_time, num_samples, sampling_frequency,
		       pga_vertical, pga_north, pga_east, baseline_correction, file_path
		FROM acceleration_records WHERE event_id = ? AND station_id = ?`,
		eventID, stationID).Scan(
		&id, &rec.EventID, &rec.StationID, &startTime, &rec.NumSamples, &rec.SamplingFrequency,
		&rec.PGAVertical, &rec.PGANorth, &rec.PGAEast, &rec.BaselineCorrection, &filePath)
	if err == sql.ErrNoRows {
		return domain.AccelerationRecord{}, 0, ErrNotFound
	}
	if err != nil {
		return domain.AccelerationRecord{}, 0, err
	}

	if startTime.Valid {
		if t, err := time.Parse(timeFormat, startTime.String); err == nil {
			rec.StartTime = t
		}
	}
	rec.FilePath = filePath.String
	return rec, id, nil
}

// GetSamples returns the record's sample series in stored index order.
func (s *Store) GetSamples(ctx context.Context, recordID int64) ([]domain.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT accel_vertical, accel_north, accel_east
		FROM acceleration_samples WHERE record_id = ?
		ORDER BY sample_index`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query samples for record %d: %w", recordID, err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var sm domain.Sample
		if err := rows.Scan(&sm.Vertical, &sm.North, &sm.East); err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// CountRecordsByEvent returns how many station records the event has.
func (s *Store) CountRecordsByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM acceleration_records WHERE event_id = ?", eventID).Scan(&n)
	return n, err
}
