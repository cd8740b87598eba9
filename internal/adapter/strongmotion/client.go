// Package strongmotion talks to the IGP national accelerometer network
// (RAN): one JSON POST fetches the stations that recorded an event, one GET
// per station downloads its raw acceleration report.
package strongmotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// ErrFileNotFound marks a station whose report file does not exist on the
// network's server. Never retried: the file either exists or it does not.
var ErrFileNotFound = errors.New("report file not found")

// eventTimeFormat is the wire format the breadcrumb API expects.
const eventTimeFormat = "20060102_150405"

// EventData is the breadcrumb API's description of one event: the network's
// own identifier plus the contributing stations.
type EventData struct {
	// ExternalID is the network-internal event id used in file URLs.
	// Empty when the payload carries none; the file URL then uses the
	// sentinel "undefined", matching the site's own frontend.
	ExternalID string
	Stations   []domain.StationInfo
}

// Client is the HTTP client for the strong-motion network.
type Client struct {
	rest        *resty.Client
	stationsURL string
	fileBaseURL string
	logger      *slog.Logger
}

// NewClient builds a network client. The origin/referer headers mirror the
// site's own frontend requests; there is no other auth.
func NewClient(stationsURL, fileBaseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Origin", "https://www.igp.gob.pe")

	return &Client{
		rest:        rest,
		stationsURL: stationsURL,
		fileBaseURL: fileBaseURL,
		logger:      logger,
	}
}

// FetchEventStations posts the event's UTC timestamp to the breadcrumb API
// and extracts the contributing stations. Stations missing any required
// field are dropped with a warning, not fatal.
func (c *Client) FetchEventStations(ctx context.Context, eventTime time.Time) (EventData, error) {
	datetime := eventTime.UTC().Format(eventTimeFormat)

	var payload eventPayload
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Referer", "https://www.igp.gob.pe/servicios/aceldat-peru/reportes-registros-acelerometricos?date="+datetime).
		SetBody(map[string]string{"datetime": datetime}).
		SetResult(&payload).
		Post(c.stationsURL)
	if err != nil {
		return EventData{}, fmt.Errorf("fetch event stations: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return EventData{}, fmt.Errorf("stations API error: status %d", resp.StatusCode())
	}

	data := EventData{ExternalID: payload.externalID()}
	for _, st := range payload.Stats {
		info, ok := st.toStation()
		if !ok {
			c.logger.Warn("dropping station with missing fields", "code", st.Cod)
			continue
		}
		data.Stations = append(data.Stations, info)
	}
	return data, nil
}

// ReportURL builds the deterministic per-station file URL. A missing
// external event id becomes the sentinel "undefined".
func (c *Client) ReportURL(externalID string, eventTime time.Time, stationCode, network string) string {
	if externalID == "" {
		externalID = "undefined"
	}
	return fmt.Sprintf("%s/%s_%s_%s_%s.txt",
		c.fileBaseURL, externalID, eventTime.UTC().Format(eventTimeFormat), stationCode, network)
}

// DownloadReport fetches one station's report and writes it to destPath for
// offline re-parseability. A 404 or transport failure maps to
// ErrFileNotFound; retry policy is the caller's decision.
func (c *Client) DownloadReport(ctx context.Context, url, destPath string) (string, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", ErrFileNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFileNotFound, resp.StatusCode())
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(destPath, resp.Body(), 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return string(resp.Body()), nil
}

// Breadcrumb API payload types.

type eventPayload struct {
	ID    json.RawMessage  `json:"_id"`
	Stats []stationPayload `json:"stats"`
}

// externalID renders the _id field, which arrives as either a JSON number
// or a quoted string depending on the backend revision.
func (p eventPayload) externalID() string {
	s := strings.Trim(string(p.ID), `"`)
	if s == "null" {
		return ""
	}
	return s
}

type stationPayload struct {
	Cod string `json:"cod"`
	Nom string `json:"nom"`
	Net string `json:"net"`
	Pos struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"pos"`
}

func (s stationPayload) toStation() (domain.StationInfo, bool) {
	if s.Cod == "" || s.Nom == "" || len(s.Pos.Coordinates) < 2 {
		return domain.StationInfo{}, false
	}
	network := s.Net
	if network == "" {
		network = "PE"
	}
	return domain.StationInfo{
		Code:      s.Cod,
		Name:      s.Nom,
		Longitude: s.Pos.Coordinates[0],
		Latitude:  s.Pos.Coordinates[1],
		Network:   network,
	}, true
}
