// Package domain models seismic-event catalog data and strong-motion
// acceleration records.
//
// # Data Sources
//
// Catalog events come from three live agency APIs plus bulk CSV archives:
//
//   - USGS fdsnws event service: GeoJSON, epoch-millisecond timestamps,
//     depth carried as the third geometry coordinate.
//   - ISC web-db-run service: delimited plain text bracketed by sentinel
//     lines ("EVENTID" opens the table, "STOP" closes it, "No events were
//     found." marks an empty result).
//   - IGP (Instituto Geofísico del Perú) last-earthquakes API: one JSON
//     array per year with separate fecha_utc/hora_utc fields.
//   - CSV archives with a fixed 13-column schema, one directory per catalog.
//
// # Identity Conventions
//
// Events are unique per event_id within the store; upserts fully replace the
// row, never merging fields. IGP elements occasionally arrive without a
// source identifier, in which case one is synthesized from the event
// timestamp as "IGP_YYYYMMDDHHMMSS".
//
// Stations are keyed by their network code (e.g. "LMOL"). Codes are stable
// within one network but not globally unique across catalogs, so they are
// only used as an idempotency key inside the acquisition pipeline.
//
// Acceleration records are unique per (event_id, station_id) pair. Samples
// are ordered by sample_index, contiguous from 0 in original file order, and
// are always replaced as a whole when a record is re-acquired.
//
// # Timestamp Conventions
//
// All times are stored UTC. The IGP API publishes fecha_utc/hora_utc and is
// treated as UTC+0. Event times read back from storage pass through
// ParseEventTime, which tries an ordered list of formats and falls back to
// the current clock time when nothing matches; the fallback is reported
// through the typed parse outcome so callers can log the degradation.
package domain
