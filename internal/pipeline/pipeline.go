// Package pipeline drives per-event record acquisition: for each catalog
// event it asks the strong-motion network which stations recorded it, then
// downloads, parses, and persists every station's acceleration report.
//
// Two pool levels: an outer pool over events and a fresh inner pool per
// event over its stations. Pools are never shared across events; the only
// run-wide shared state is the mutex-guarded run counters and station-id
// cache.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/geoandes/seismic-harvest/internal/domain"
	"github.com/geoandes/seismic-harvest/internal/observability"
	"github.com/geoandes/seismic-harvest/internal/store"
)

// RecordStore is the slice of the persistence facade the pipeline needs.
type RecordStore interface {
	StartRecordSync(ctx context.Context, runID, catalog string, year int, start time.Time) (int64, error)
	FinishRecordSync(ctx context.Context, id int64, processed, inserted, updated int, status, errMsg string) error
	EventsWithoutRecords(ctx context.Context, catalog string, limit int) ([]store.PendingEvent, error)
	UpsertStation(ctx context.Context, st domain.StationInfo) (int64, error)
	UpsertAccelerationRecord(ctx context.Context, rec domain.AccelerationRecord) (int64, error)
	ReplaceSamples(ctx context.Context, recordID int64, samples []domain.Sample) error
}

// Candidate is one event queued for record acquisition. EventTime is the
// stored text form; Run normalizes it through the ordered parse strategies.
type Candidate struct {
	EventID   string
	Catalog   string
	EventTime string
}

// DefaultEventTimeout bounds one event's full station fan-out. A task still
// running at the deadline is abandoned and counted as a failed event.
const DefaultEventTimeout = 600 * time.Second

// Pipeline runs record-acquisition sessions against one store and one
// strong-motion network client.
type Pipeline struct {
	store        RecordStore
	network      ReportFetcher
	metrics      *observability.Metrics
	logger       *slog.Logger
	dataDir      string
	eventTimeout time.Duration
}

// New builds a Pipeline. eventTimeout <= 0 selects DefaultEventTimeout.
func New(st RecordStore, network ReportFetcher, metrics *observability.Metrics,
	logger *slog.Logger, dataDir string, eventTimeout time.Duration) *Pipeline {
	if eventTimeout <= 0 {
		eventTimeout = DefaultEventTimeout
	}
	return &Pipeline{
		store:        st,
		network:      network,
		metrics:      metrics,
		logger:       logger,
		dataDir:      dataDir,
		eventTimeout: eventTimeout,
	}
}

// EventsToProcess returns up to limit catalog events that still have no
// acceleration record. The query converges: once an event has a record it
// never comes back.
func (p *Pipeline) EventsToProcess(ctx context.Context, catalog string, limit int) ([]Candidate, error) {
	pending, err := p.store.EventsWithoutRecords(ctx, catalog, limit)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, len(pending))
	for i, ev := range pending {
		candidates[i] = Candidate{EventID: ev.EventID, Catalog: ev.Catalog, EventTime: ev.EventTime}
	}
	return candidates, nil
}

// Run acquires records for the given events. It opens a sync session (a
// failure there fails the run immediately), fans events onto the outer pool,
// and closes the session exactly once with the aggregate outcome:
// completed when no event failed, completed_with_errors otherwise.
func (p *Pipeline) Run(ctx context.Context, catalog string, events []Candidate,
	parallelEvents, parallelStations int) (RunResult, error) {
	if parallelEvents <= 0 {
		parallelEvents = 1
	}

	runID := uuid.NewString()
	start := clock.Now().UTC()

	sessionID, err := p.store.StartRecordSync(ctx, runID, catalog, start.Year(), start)
	if err != nil {
		return RunResult{}, fmt.Errorf("start sync session: %w", err)
	}

	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)
	p.logger.Info("record acquisition run starting",
		"run", runID, "catalog", catalog, "events", len(events),
		"parallel_events", parallelEvents, "parallel_stations", parallelStations)

	cache := newStationCache()
	counters := newRunMetrics()
	results := make(chan EventResult, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelEvents)
	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			results <- p.runEvent(gctx, catalog, ev, parallelStations, cache)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // event tasks never return errors
	close(results)

	for res := range results {
		counters.recordEvent(res)
		outcome := "success"
		if res.Err != nil {
			outcome = "failed"
		}
		p.metrics.EventsProcessed.WithLabelValues(outcome).Inc()
	}

	status := store.SyncCompleted
	run := counters.result(runID, status)
	if run.EventsFailed > 0 {
		status = store.SyncCompletedWithErrors
		run.Status = status
	}

	errMsg := ""
	if len(run.Errors) > 0 {
		errMsg = fmt.Sprintf("%d events failed; first: %s", run.EventsFailed, run.Errors[0])
	}
	if err := p.store.FinishRecordSync(ctx, sessionID,
		run.EventsProcessed, run.RecordsSaved, 0, status, errMsg); err != nil {
		p.logger.Error("closing sync session failed", "run", runID, "error", err)
	}

	p.logger.Info("record acquisition run finished",
		"run", runID, "status", status,
		"events", run.EventsProcessed, "saved", run.EventsSaved, "failed", run.EventsFailed,
		"records", run.RecordsSaved, "samples", run.SamplesStored)
	return run, nil
}

// runEvent executes one event task under the hard per-event timeout. A task
// that panics or outlives the deadline becomes a failed EventResult; the
// run keeps going.
func (p *Pipeline) runEvent(ctx context.Context, catalog string, ev Candidate,
	parallelStations int, cache *stationCache) EventResult {
	eventTime, outcome := domain.ParseEventTime(ev.EventTime)
	if outcome == domain.ParsedFallbackUsed {
		p.logger.Warn("event time unparseable, using current time",
			"event", ev.EventID, "raw", ev.EventTime)
	}

	ctx, cancel := context.WithTimeout(ctx, p.eventTimeout)
	defer cancel()

	done := make(chan EventResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- EventResult{EventID: ev.EventID, Err: fmt.Errorf("event task panicked: %v", r)}
			}
		}()
		proc := NewStationProcessor(p.store, p.network, p.metrics, p.logger,
			catalog, p.dataDir, parallelStations, cache)
		saved := proc.Process(ctx, ev.EventID, eventTime)
		done <- EventResult{EventID: ev.EventID, Saved: saved, Stations: proc.Results()}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return EventResult{EventID: ev.EventID,
			Err: fmt.Errorf("event processing exceeded %s: %w", p.eventTimeout, ctx.Err())}
	}
}
