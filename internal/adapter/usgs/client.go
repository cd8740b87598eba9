// Package usgs fetches earthquake events from the USGS fdsnws event API.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// Client queries the USGS event service for one bbox-constrained date range
// and normalizes the GeoJSON response into seismic events.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a USGS catalog client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchEvents performs one GET for the query's date range and bbox.
// Transport failures and non-2xx statuses surface as errors for the
// harvester to catch; features missing a time or full coordinates are
// skipped.
func (c *Client) FetchEvents(ctx context.Context, q domain.CatalogQuery) ([]domain.SeismicEvent, error) {
	params := url.Values{
		"format":       {"geojson"},
		"minlatitude":  {fmt.Sprintf("%g", q.BBox.MinLat)},
		"maxlatitude":  {fmt.Sprintf("%g", q.BBox.MaxLat)},
		"minlongitude": {fmt.Sprintf("%g", q.BBox.MinLon)},
		"maxlongitude": {fmt.Sprintf("%g", q.BBox.MaxLon)},
		"starttime":    {q.StartDate},
		"endtime":      {q.EndDate},
		"eventtype":    {"earthquake"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs fetch %s to %s: %w", q.StartDate, q.EndDate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode usgs response: %w", err)
	}

	events := make([]domain.SeismicEvent, 0, len(payload.Features))
	for _, f := range payload.Features {
		ev, ok := c.toEvent(f)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) toEvent(f feature) (domain.SeismicEvent, bool) {
	coords := f.Geometry.Coordinates
	if len(coords) < 3 || f.Properties.Time == 0 {
		return domain.SeismicEvent{}, false
	}

	eventID := f.Properties.IDs
	if eventID == "" {
		eventID = f.ID
	}
	if eventID == "" {
		eventID = "usgs_" + f.Properties.Code
	}

	agency := f.Properties.Net
	if agency == "" {
		agency = "USGS"
	}

	ev := domain.SeismicEvent{
		EventID:   eventID,
		Agency:    agency,
		Catalog:   "usgs",
		EventTime: time.UnixMilli(f.Properties.Time).UTC(),
		Longitude: coords[0],
		Latitude:  coords[1],
		MagType:   f.Properties.MagType,
	}
	// Depth rides as the geometry's third coordinate.
	if coords[2] != 0 {
		ev.Depth = domain.Float64Ptr(coords[2])
	}
	if f.Properties.Mag != nil {
		ev.Magnitude = f.Properties.Mag
	}
	return ev, true
}

// GeoJSON response types, narrowed to the fields this client reads.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	Time    int64    `json:"time"` // epoch milliseconds
	Mag     *float64 `json:"mag"`
	MagType string   `json:"magType"`
	Net     string   `json:"net"`
	IDs     string   `json:"ids"`
	Code    string   `json:"code"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}
