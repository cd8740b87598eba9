package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

// Default service endpoints. Overridable via environment for tests and
// mirror deployments.
const (
	defaultUSGSBaseURL    = "https://earthquake.usgs.gov/fdsnws/event/1/query"
	defaultISCBaseURL     = "http://www.isc.ac.uk/cgi-bin/web-db-run"
	defaultIGPCatalogURL  = "https://ultimosismo.igp.gob.pe/api/ultimo-sismo/ajaxb"
	defaultStationsAPIURL = "https://www.igp.gob.pe/servicios/api-acelerometrica/ran/breadcrumbstations2"
	defaultFileBaseURL    = "https://www.igp.gob.pe/servicios/api-acelerometrica/ran/file"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DBPath  string
	DataDir string

	LogLevel  string
	LogFormat string

	HTTPTimeout  time.Duration
	EventTimeout time.Duration

	// HarvestWorkers caps the catalog-year pool; 0 selects the automatic
	// default of min(40, 5×GOMAXPROCS).
	HarvestWorkers int
	// EventWorkers caps the per-event pool. Deliberately small: each
	// worker hits a live external site.
	EventWorkers int
	// StationWorkers caps the per-station pool inside one event.
	StationWorkers int

	CSVDelimiter rune
	CSVBaseDir   string

	USGSBaseURL    string
	ISCBaseURL     string
	IGPCatalogURL  string
	StationsAPIURL string
	FileBaseURL    string

	// BBox is the default search region (Peru and bordering waters).
	BBox domain.BBox
}

// Load reads configuration from environment variables, applying defaults
// where unset and validating the result.
func Load() (*Config, error) {
	httpTimeout, err := parseDurationEnv("HTTP_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}
	eventTimeout, err := parseDurationEnv("EVENT_TIMEOUT", 600*time.Second)
	if err != nil {
		return nil, err
	}

	harvestWorkers, err := parseIntEnv("HARVEST_WORKERS", 0)
	if err != nil {
		return nil, err
	}
	eventWorkers, err := parseIntEnv("EVENT_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	stationWorkers, err := parseIntEnv("STATION_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	delimiter, err := parseDelimiter(envOrDefault("CSV_DELIMITER", ","))
	if err != nil {
		return nil, err
	}

	bbox, err := parseBBox(envOrDefault("BBOX", "-21.0,0.5,-82.5,-67.5"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:  envOrDefault("DB_PATH", "data/seismic.db"),
		DataDir: envOrDefault("DATA_DIR", "data/records"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		HTTPTimeout:  httpTimeout,
		EventTimeout: eventTimeout,

		HarvestWorkers: harvestWorkers,
		EventWorkers:   eventWorkers,
		StationWorkers: stationWorkers,

		CSVDelimiter: delimiter,
		CSVBaseDir:   envOrDefault("CSV_BASE_DIR", "data/catalogs"),

		USGSBaseURL:    envOrDefault("USGS_BASE_URL", defaultUSGSBaseURL),
		ISCBaseURL:     envOrDefault("ISC_BASE_URL", defaultISCBaseURL),
		IGPCatalogURL:  envOrDefault("IGP_CATALOG_URL", defaultIGPCatalogURL),
		StationsAPIURL: envOrDefault("STATIONS_API_URL", defaultStationsAPIURL),
		FileBaseURL:    envOrDefault("FILE_BASE_URL", defaultFileBaseURL),

		BBox: bbox,
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.EventWorkers < 1 {
		return nil, errors.New("EVENT_WORKERS must be at least 1")
	}
	if cfg.StationWorkers < 1 {
		return nil, errors.New("STATION_WORKERS must be at least 1")
	}
	if cfg.HarvestWorkers < 0 {
		return nil, errors.New("HARVEST_WORKERS must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseDelimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("invalid CSV_DELIMITER: %q", s)
	}
	return runes[0], nil
}

// parseBBox reads "minLat,maxLat,minLon,maxLon".
func parseBBox(s string) (domain.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BBox{}, fmt.Errorf("invalid BBOX: %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BBox{}, fmt.Errorf("invalid BBOX component %q: %w", p, err)
		}
		vals[i] = v
	}
	bbox := domain.BBox{MinLat: vals[0], MaxLat: vals[1], MinLon: vals[2], MaxLon: vals[3]}
	if bbox.MinLat >= bbox.MaxLat || bbox.MinLon >= bbox.MaxLon {
		return domain.BBox{}, fmt.Errorf("invalid BBOX bounds: %q", s)
	}
	return bbox, nil
}
