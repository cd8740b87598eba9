// Package isc fetches earthquake events from the ISC web-db-run service.
//
// The service returns delimited plain text wrapped in HTML-ish noise. The
// event table is bracketed by sentinel lines: a header line containing
// "EVENTID" opens it, a line containing "STOP" closes it, and the phrase
// "No events were found." marks a legitimately empty result.
package isc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// Column layout of one CATCSV data line.
// EVENTID,TYPE,AUTHOR,DATE,TIME,LAT,LON,DEPTH,DEPFIX,AUTHOR,TYPE,MAG
const minColumns = 12

// Client queries the ISC catalog for one bbox-constrained date range.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an ISC catalog client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchEvents performs one GET and parses the sentinel-delimited table.
// Malformed lines are skipped with a warning; transport failures and
// non-2xx statuses are returned as errors.
func (c *Client) FetchEvents(ctx context.Context, q domain.CatalogQuery) ([]domain.SeismicEvent, error) {
	params, err := buildParams(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("isc fetch %s to %s: %w", q.StartDate, q.EndDate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("isc API error: status %d: %s", resp.StatusCode, body)
	}

	return c.parseBody(resp.Body), nil
}

func buildParams(q domain.CatalogQuery) (url.Values, error) {
	start := strings.Split(q.StartDate, "-")
	end := strings.Split(q.EndDate, "-")
	if len(start) != 3 || len(end) != 3 {
		return nil, fmt.Errorf("invalid date range %q to %q", q.StartDate, q.EndDate)
	}

	return url.Values{
		"request":     {"COMPREHENSIVE"},
		"out_format":  {"CATCSV"},
		"searchshape": {"RECT"},
		"bot_lat":     {fmt.Sprintf("%g", q.BBox.MinLat)},
		"top_lat":     {fmt.Sprintf("%g", q.BBox.MaxLat)},
		"left_lon":    {fmt.Sprintf("%g", q.BBox.MinLon)},
		"right_lon":   {fmt.Sprintf("%g", q.BBox.MaxLon)},
		"start_year":  {start[0]},
		"start_month": {start[1]},
		"start_day":   {start[2]},
		"start_time":  {"00:00:00"},
		"end_year":    {end[0]},
		"end_month":   {end[1]},
		"end_day":     {end[2]},
		"end_time":    {"23:59:59"},
	}, nil
}

func (c *Client) parseBody(body io.Reader) []domain.SeismicEvent {
	var events []domain.SeismicEvent
	inTable := false

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "No events were found.") {
			return events
		}
		if strings.Contains(line, "EVENTID") {
			inTable = true
			continue
		}
		if strings.Contains(line, "STOP") {
			break
		}
		if !inTable || strings.TrimSpace(line) == "" {
			continue
		}

		ev, err := parseLine(line)
		if err != nil {
			c.logger.Warn("skipping malformed isc line", "error", err)
			continue
		}
		events = append(events, ev)
	}

	return events
}

func parseLine(line string) (domain.SeismicEvent, error) {
	cols := strings.Split(line, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	if len(cols) < minColumns {
		return domain.SeismicEvent{}, fmt.Errorf("expected %d columns, got %d", minColumns, len(cols))
	}

	eventTime, err := parseEventTime(cols[3], cols[4])
	if err != nil {
		return domain.SeismicEvent{}, err
	}

	lat, err := strconv.ParseFloat(cols[5], 64)
	if err != nil {
		return domain.SeismicEvent{}, fmt.Errorf("latitude %q: %w", cols[5], err)
	}
	lon, err := strconv.ParseFloat(cols[6], 64)
	if err != nil {
		return domain.SeismicEvent{}, fmt.Errorf("longitude %q: %w", cols[6], err)
	}

	ev := domain.SeismicEvent{
		EventID:   cols[0],
		Agency:    cols[2],
		Catalog:   "isc",
		EventTime: eventTime,
		Latitude:  lat,
		Longitude: lon,
		MagType:   cols[10],
	}
	if v, err := strconv.ParseFloat(cols[7], 64); err == nil {
		ev.Depth = domain.Float64Ptr(v)
	}
	if v, err := strconv.ParseFloat(cols[11], 64); err == nil {
		ev.Magnitude = domain.Float64Ptr(v)
	}
	return ev, nil
}

// parseEventTime accepts times with and without fractional seconds;
// time.Parse tolerates a fractional-seconds suffix even when the layout
// omits it.
func parseEventTime(date, clock string) (time.Time, error) {
	combined := date + " " + clock
	t, err := time.Parse("2006-01-02 15:04:05", combined)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable event time %q", combined)
	}
	return t.UTC(), nil
}
