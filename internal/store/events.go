package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// upsertBatchSize bounds both the IN(...) placeholder list of the
// existence check and the multi-row insert.
const upsertBatchSize = 500

// UpsertEvents stores events in batches, fully replacing any existing row
// with the same event_id. Returns how many ids were new versus already
// present. Idempotent and order-independent: replaying identical events
// converges to the same stored state.
func (s *Store) UpsertEvents(ctx context.Context, events []domain.SeismicEvent) (inserted, updated int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	for start := 0; start < len(events); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(events))
		batch := events[start:end]

		err = s.withTx(ctx, func(tx *sql.Tx) error {
			existing, err := existingIDs(ctx, tx, batch)
			if err != nil {
				return err
			}

			stmt, err := tx.PrepareContext(ctx, `
				INSERT OR REPLACE INTO seismic_events
				(event_id, agency, catalog, event_time, longitude, latitude, depth, magnitude, mag_type)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, e := range batch {
				_, err := stmt.ExecContext(ctx,
					e.EventID, e.Agency, e.Catalog, e.EventTime.UTC().Format(timeFormat),
					e.Longitude, e.Latitude,
					nullableFloat(e.Depth), nullableFloat(e.Magnitude), nullableString(e.MagType))
				if err != nil {
					return fmt.Errorf("upsert event %s: %w", e.EventID, err)
				}
			}

			inserted += len(batch) - len(existing)
			updated += len(existing)
			return nil
		})
		if err != nil {
			return 0, 0, err
		}
	}

	return inserted, updated, nil
}

// existingIDs reports which of the batch's event ids are already stored,
// for accurate inserted/updated counts.
func existingIDs(ctx context.Context, tx *sql.Tx, batch []domain.SeismicEvent) (map[string]struct{}, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
	args := make([]any, len(batch))
	for i, e := range batch {
		args[i] = e.EventID
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT event_id FROM seismic_events WHERE event_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("check existing events: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// GetEvent looks one event up by id. Returns ErrNotFound when absent.
func (s *Store) GetEvent(ctx context.Context, eventID string) (domain.SeismicEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, agency, catalog, event_time, longitude, latitude, depth, magnitude, mag_type
		FROM seismic_events WHERE event_id = ?`, eventID)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return domain.SeismicEvent{}, ErrNotFound
	}
	return ev, err
}

// PendingEvent is a catalog event awaiting record acquisition. EventTime
// carries the stored text representation; the pipeline normalizes it.
type PendingEvent struct {
	EventID   string
	Catalog   string
	EventTime string
}

// EventsWithoutRecords returns up to limit catalog events that have no
// acceleration record yet. Repeated calls are safe and converge once every
// event has at least one record.
func (s *Store) EventsWithoutRecords(ctx context.Context, catalog string, limit int) ([]PendingEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT se.event_id, se.catalog, se.event_time
		FROM seismic_events se
		WHERE se.catalog = ? AND se.event_id NOT IN (
			SELECT DISTINCT event_id FROM acceleration_records
		)
		ORDER BY se.event_time DESC
		LIMIT ?`, catalog, limit)
	if err != nil {
		return nil, fmt.Errorf("query events without records: %w", err)
	}
	defer rows.Close()

	var events []PendingEvent
	for rows.Next() {
		var ev PendingEvent
		if err := rows.Scan(&ev.EventID, &ev.Catalog, &ev.EventTime); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.SeismicEvent, error) {
	var ev domain.SeismicEvent
	var eventTime string
	var depth, magnitude sql.NullFloat64
	var magType sql.NullString

	err := row.Scan(&ev.EventID, &ev.Agency, &ev.Catalog, &eventTime,
		&ev.Longitude, &ev.Latitude, &depth, &magnitude, &magType)
	if err != nil {
		return domain.SeismicEvent{}, err
	}

	if t, err := time.Parse(timeFormat, eventTime); err == nil {
		ev.EventTime = t
	}
	ev.Depth = scanFloatPtr(depth)
	ev.Magnitude = scanFloatPtr(magnitude)
	ev.MagType = magType.String
	return ev, nil
}
