package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoandes/seismic-harvest/internal/accel"
	"github.com/geoandes/seismic-harvest/internal/adapter/strongmotion"
	"github.com/geoandes/seismic-harvest/internal/domain"
	"github.com/geoandes/seismic-harvest/internal/observability"
)

// ReportFetcher is the strong-motion network surface the processor needs.
// Implemented by strongmotion.Client.
type ReportFetcher interface {
	FetchEventStations(ctx context.Context, eventTime time.Time) (strongmotion.EventData, error)
	ReportURL(externalID string, eventTime time.Time, stationCode, network string) string
	DownloadReport(ctx context.Context, url, destPath string) (string, error)
}

// stationCache deduplicates station upserts across the events of one run.
// The mutex is held through the upsert so two events sharing a station never
// race to create it.
type stationCache struct {
	mu  sync.Mutex
	ids map[string]int64
}

func newStationCache() *stationCache {
	return &stationCache{ids: make(map[string]int64)}
}

func (c *stationCache) id(ctx context.Context, st RecordStore, info domain.StationInfo) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[info.Code]; ok {
		return id, nil
	}
	id, err := st.UpsertStation(ctx, info)
	if err != nil {
		return 0, err
	}
	c.ids[info.Code] = id
	return id, nil
}

// StationProcessor acquires every station record of one event: one POST for
// the station list, then download, parse, persist per station on a bounded
// inner pool. A fresh processor is built per event; the station-id cache is
// shared across the run.
type StationProcessor struct {
	store    RecordStore
	network  ReportFetcher
	metrics  *observability.Metrics
	logger   *slog.Logger
	catalog  string
	dataDir  string
	workers  int
	stations *stationCache

	mu      sync.Mutex
	results []StationResult
}

// NewStationProcessor builds a processor for one event. workers <= 0
// selects a pool of defaultStationWorkers.
func NewStationProcessor(st RecordStore, network ReportFetcher, metrics *observability.Metrics,
	logger *slog.Logger, catalog, dataDir string, workers int, cache *stationCache) *StationProcessor {
	if workers <= 0 {
		workers = defaultStationWorkers
	}
	if cache == nil {
		cache = newStationCache()
	}
	return &StationProcessor{
		store:    st,
		network:  network,
		metrics:  metrics,
		logger:   logger,
		catalog:  catalog,
		dataDir:  dataDir,
		workers:  workers,
		stations: cache,
	}
}

const defaultStationWorkers = 4

// Process acquires the event's station records and reports whether at least
// one was saved. Per-station failures are tagged outcomes, never errors;
// only a failed station-list fetch aborts the whole event.
func (p *StationProcessor) Process(ctx context.Context, eventID string, eventTime time.Time) bool {
	data, err := p.network.FetchEventStations(ctx, eventTime)
	if err != nil {
		p.logger.Error("fetching event stations failed", "event", eventID, "error", err)
		return false
	}
	if len(data.Stations) == 0 {
		p.logger.Info("no stations recorded event", "event", eventID)
		return false
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, station := range data.Stations {
		station := station
		g.Go(func() error {
			res := p.processStation(gctx, eventID, eventTime, data.ExternalID, station)
			p.record(res)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // station tasks never return errors

	saved := false
	p.mu.Lock()
	for _, r := range p.results {
		if r.Status == StatusSuccess {
			saved = true
			break
		}
	}
	p.mu.Unlock()
	return saved
}

// Results returns the per-station outcomes accumulated so far.
func (p *StationProcessor) Results() []StationResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StationResult(nil), p.results...)
}

func (p *StationProcessor) record(res StationResult) {
	p.mu.Lock()
	p.results = append(p.results, res)
	p.mu.Unlock()
	p.metrics.StationOutcomes.WithLabelValues(string(res.Status)).Inc()
}

// processStation runs the download-parse-persist chain for one station. The
// first failing step decides the status; nothing is retried.
func (p *StationProcessor) processStation(ctx context.Context, eventID string, eventTime time.Time,
	externalID string, station domain.StationInfo) StationResult {
	res := StationResult{Code: station.Code}

	url := p.network.ReportURL(externalID, eventTime, station.Code, station.Network)
	destPath := filepath.Join(p.dataDir, p.catalog, fmt.Sprintf("%s_%s.txt", eventID, station.Code))

	content, err := p.network.DownloadReport(ctx, url, destPath)
	if err != nil {
		p.logger.Warn("report file unavailable",
			"event", eventID, "station", station.Code, "url", url, "error", err)
		res.Status = StatusFileNotFound
		res.Err = err
		return res
	}

	report, err := accel.Parse(content)
	if err != nil {
		p.logger.Warn("report parse failed",
			"event", eventID, "station", station.Code, "error", err)
		res.Status = StatusParseError
		res.Err = err
		return res
	}

	stationID, err := p.stations.id(ctx, p.store, station)
	if err != nil {
		p.logger.Error("station save failed",
			"event", eventID, "station", station.Code, "error", err)
		res.Status = StatusStationSaveError
		res.Err = err
		return res
	}

	recordID, err := p.store.UpsertAccelerationRecord(ctx, domain.AccelerationRecord{
		EventID:            eventID,
		StationID:          stationID,
		StartTime:          eventTime,
		NumSamples:         report.SampleCount(),
		SamplingFrequency:  report.SamplingFrequency,
		PGAVertical:        report.PGAVertical,
		PGANorth:           report.PGANorth,
		PGAEast:            report.PGAEast,
		BaselineCorrection: true,
		FilePath:           destPath,
	})
	if err != nil {
		p.logger.Error("record save failed",
			"event", eventID, "station", station.Code, "error", err)
		res.Status = StatusRecordSaveError
		res.Err = err
		return res
	}

	if err := p.store.ReplaceSamples(ctx, recordID, report.Samples); err != nil {
		p.logger.Error("samples save failed",
			"event", eventID, "station", station.Code, "record", recordID, "error", err)
		res.Status = StatusSamplesSaveError
		res.Err = err
		return res
	}

	p.metrics.SamplesStored.Add(float64(len(report.Samples)))
	p.logger.Info("station record saved",
		"event", eventID, "station", station.Code, "samples", len(report.Samples))

	res.Status = StatusSuccess
	res.Samples = len(report.Samples)
	return res
}
