// Package igp fetches earthquake events from the IGP (Instituto Geofísico
// del Perú) last-earthquakes API. The source is region-fixed, so queries
// carry only a year; bbox parameters are ignored.
package igp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// Client queries the IGP catalog one year at a time.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an IGP catalog client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchEvents performs one GET for the query's year and normalizes the JSON
// array. Malformed elements are skipped with a warning; an element without
// a source identifier gets one synthesized from its timestamp.
func (c *Client) FetchEvents(ctx context.Context, q domain.CatalogQuery) ([]domain.SeismicEvent, error) {
	url := fmt.Sprintf("%s/%d", c.baseURL, q.Year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("igp fetch year %d: %w", q.Year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("igp API error: status %d: %s", resp.StatusCode, body)
	}

	// Elements are decoded individually so one malformed entry skips that
	// entry, not the whole year.
	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode igp response: %w", err)
	}

	events := make([]domain.SeismicEvent, 0, len(raw))
	for i, msg := range raw {
		var item element
		if err := json.Unmarshal(msg, &item); err != nil {
			c.logger.Warn("skipping malformed igp element", "index", i, "error", err)
			continue
		}
		ev, err := c.toEvent(item)
		if err != nil {
			c.logger.Warn("skipping malformed igp element", "index", i, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) toEvent(item element) (domain.SeismicEvent, error) {
	// The API splits the UTC timestamp across a date and a time field.
	// Field names pin the convention: fecha_utc/hora_utc are UTC+0.
	eventTime, err := combineDateTime(item.FechaUTC, item.HoraUTC)
	if err != nil {
		return domain.SeismicEvent{}, err
	}

	if item.Latitud.value == nil {
		return domain.SeismicEvent{}, fmt.Errorf("missing latitude")
	}
	if item.Longitud.value == nil {
		return domain.SeismicEvent{}, fmt.Errorf("missing longitude")
	}
	lat := *item.Latitud.value
	lon := *item.Longitud.value

	eventID := item.Codigo
	if eventID == "" {
		eventID = "IGP_" + eventTime.Format("20060102150405")
		c.logger.Warn("igp element without identifier, synthesized one", "event_id", eventID)
	}

	magType := item.TipoMagnitud
	if magType == "" {
		magType = "ML"
	}

	ev := domain.SeismicEvent{
		EventID:   eventID,
		Agency:    "IGP",
		Catalog:   "igp",
		EventTime: eventTime,
		Latitude:  lat,
		Longitude: lon,
		MagType:   magType,
	}
	// Numeric fields default to absent on missing data.
	if item.Profundidad.value != nil {
		ev.Depth = domain.Float64Ptr(*item.Profundidad.value)
	}
	if item.Magnitud.value != nil {
		ev.Magnitude = domain.Float64Ptr(*item.Magnitud.value)
	}
	return ev, nil
}

// combineDateTime merges separate date and time strings into one UTC
// timestamp.
func combineDateTime(date, clock string) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("missing date %q or time %q", date, clock)
	}

	var d time.Time
	var err error
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if d, err = time.Parse(layout, date); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q", date)
	}

	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable time %q", clock)
	}

	return time.Date(d.Year(), d.Month(), d.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}

// element mirrors one entry of the IGP JSON array. Numeric fields arrive as
// either numbers or quoted strings depending on the API revision, so they
// decode through flexNumber.
type element struct {
	Codigo       string     `json:"codigo"`
	FechaUTC     string     `json:"fecha_utc"`
	HoraUTC      string     `json:"hora_utc"`
	Latitud      flexNumber `json:"latitud"`
	Longitud     flexNumber `json:"longitud"`
	Profundidad  flexNumber `json:"profundidad"`
	Magnitud     flexNumber `json:"magnitud"`
	TipoMagnitud string     `json:"tipomagnitud"`
}

// flexNumber accepts a JSON number, a numeric string, null, or an empty
// string. Empty and null leave the value absent.
type flexNumber struct {
	value *float64
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	f.value = &v
	return nil
}
