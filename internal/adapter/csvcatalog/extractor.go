// Package csvcatalog reads seismic events from bulk CSV catalog archives.
//
// Every archive must carry the fixed required-column set; a missing column
// fails the whole file before any row is processed. Individual bad rows are
// skipped with a warning.
package csvcatalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// RequiredColumns is the fixed header contract for catalog archives.
var RequiredColumns = []string{
	"event_id", "year", "month", "day", "hour", "minute", "second",
	"latitude", "longitude", "depth", "magnitude", "magType", "catalog",
}

// Filter narrows the rows mapped from an archive. Zero values disable the
// corresponding filter.
type Filter struct {
	// MinYear keeps rows with year >= MinYear.
	MinYear int
	// BBox keeps rows whose coordinates fall inside the box.
	BBox domain.BBox
}

// Extractor maps CSV archive rows to seismic events.
type Extractor struct {
	delimiter rune
	logger    *slog.Logger
}

// New creates a CSV extractor with the given field delimiter.
func New(delimiter rune, logger *slog.Logger) *Extractor {
	return &Extractor{delimiter: delimiter, logger: logger}
}

// FetchFile reads one archive. The required-column check runs before any
// row is mapped; rows with missing coordinates or an unbuildable date are
// skipped with a warning, never fatal.
func (e *Extractor) FetchFile(path string) ([]domain.SeismicEvent, error) {
	return e.FetchFileFiltered(path, Filter{})
}

// FetchFileFiltered is FetchFile with year/bbox row filters applied.
func (e *Extractor) FetchFileFiltered(path string, filter Filter) ([]domain.SeismicEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = e.delimiter
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var events []domain.SeismicEvent
	rowNum := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			e.logger.Warn("skipping unreadable csv row", "path", path, "row", rowNum, "error", err)
			continue
		}

		ev, skip, err := mapRow(cols, row, filter)
		if err != nil {
			e.logger.Warn("skipping bad csv row", "path", path, "row", rowNum, "error", err)
			continue
		}
		if skip {
			continue
		}
		events = append(events, ev)
	}

	e.logger.Info("read catalog csv", "path", path, "events", len(events))
	return events, nil
}

// columnIndex validates the required columns up front and returns a
// name-to-index map.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// mapRow builds one event from a row. The second return is true when the
// row is filtered out rather than malformed.
func mapRow(cols map[string]int, row []string, filter Filter) (domain.SeismicEvent, bool, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	// Null lat/lon/year make the row unmappable, not the file.
	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return domain.SeismicEvent{}, false, fmt.Errorf("latitude %q", field("latitude"))
	}
	lon, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return domain.SeismicEvent{}, false, fmt.Errorf("longitude %q", field("longitude"))
	}
	year, err := strconv.Atoi(field("year"))
	if err != nil {
		return domain.SeismicEvent{}, false, fmt.Errorf("year %q", field("year"))
	}

	if filter.MinYear != 0 && year < filter.MinYear {
		return domain.SeismicEvent{}, true, nil
	}
	if !filter.BBox.IsZero() && !filter.BBox.Contains(lat, lon) {
		return domain.SeismicEvent{}, true, nil
	}

	eventTime, err := buildTime(year, field("month"), field("day"), field("hour"), field("minute"), field("second"))
	if err != nil {
		return domain.SeismicEvent{}, false, err
	}

	catalog := field("catalog")
	ev := domain.SeismicEvent{
		EventID:   field("event_id"),
		Agency:    catalog,
		Catalog:   catalog,
		EventTime: eventTime,
		Latitude:  lat,
		Longitude: lon,
		MagType:   field("magType"),
	}
	if ev.EventID == "" {
		return domain.SeismicEvent{}, false, fmt.Errorf("empty event_id")
	}
	if v, err := strconv.ParseFloat(field("depth"), 64); err == nil {
		ev.Depth = domain.Float64Ptr(v)
	}
	if v, err := strconv.ParseFloat(field("magnitude"), 64); err == nil {
		ev.Magnitude = domain.Float64Ptr(v)
	}
	return ev, false, nil
}

func buildTime(year int, month, day, hour, minute, second string) (time.Time, error) {
	atoi := func(s string) (int, error) {
		if s == "" {
			return 0, fmt.Errorf("empty date component")
		}
		// Tolerate float-formatted integers ("7.0") from spreadsheet exports.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("bad date component %q", s)
	}

	mo, err := atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	h, err := atoi(hour)
	if err != nil {
		return time.Time{}, err
	}
	mi, err := atoi(minute)
	if err != nil {
		return time.Time{}, err
	}
	sec, err := atoi(second)
	if err != nil {
		return time.Time{}, err
	}

	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %d-%d-%d", year, mo, d)
	}
	return time.Date(year, time.Month(mo), d, h, mi, sec, 0, time.UTC), nil
}
