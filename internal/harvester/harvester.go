// Package harvester orchestrates catalog harvesting: one task per
// (catalog, year) unit against an API source, or per CSV archive file,
// fanned out on a bounded worker pool with per-task fault isolation.
package harvester

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoandes/seismic-harvest/internal/adapter/csvcatalog"
	"github.com/geoandes/seismic-harvest/internal/domain"
	"github.com/geoandes/seismic-harvest/internal/observability"
	"github.com/geoandes/seismic-harvest/internal/store"
)

// Fetcher is the capability a catalog source exposes: fetch one unit of
// catalog data.
type Fetcher interface {
	FetchEvents(ctx context.Context, q domain.CatalogQuery) ([]domain.SeismicEvent, error)
}

// EventStore is the slice of the persistence facade harvesting needs.
type EventStore interface {
	UpsertEvents(ctx context.Context, events []domain.SeismicEvent) (inserted, updated int, err error)
	LogCatalogSync(ctx context.Context, e store.CatalogSyncEntry) error
}

// Result is the outcome of one harvest task. Err is recorded, never
// propagated; a failed task contributes zero counts.
type Result struct {
	Catalog   string
	Year      int
	Processed int
	Inserted  int
	Updated   int
	Err       error
}

// Summary accumulates task results across one run.
type Summary struct {
	Tasks     int
	Failed    int
	Processed int
	Inserted  int
	Updated   int
}

func (s *Summary) add(r Result) {
	s.Tasks++
	if r.Err != nil {
		s.Failed++
		return
	}
	s.Processed += r.Processed
	s.Inserted += r.Inserted
	s.Updated += r.Updated
}

// Harvester runs catalog harvest tasks. Sources are registered once at
// construction, keyed by catalog name.
type Harvester struct {
	fetchers map[string]Fetcher
	store    EventStore
	csv      *csvcatalog.Extractor
	metrics  *observability.Metrics
	logger   *slog.Logger
	workers  int
}

// New builds a Harvester. workers <= 0 selects the default pool size of
// min(40, 5*GOMAXPROCS).
func New(fetchers map[string]Fetcher, st EventStore, csvExt *csvcatalog.Extractor,
	metrics *observability.Metrics, logger *slog.Logger, workers int) *Harvester {
	if workers <= 0 {
		workers = defaultWorkers()
	}
	return &Harvester{
		fetchers: fetchers,
		store:    st,
		csv:      csvExt,
		metrics:  metrics,
		logger:   logger,
		workers:  workers,
	}
}

func defaultWorkers() int {
	w := 5 * runtime.GOMAXPROCS(0)
	return min(w, 40)
}

// Catalogs returns the registered catalog names, sorted.
func (h *Harvester) Catalogs() []string {
	names := make([]string, 0, len(h.fetchers))
	for name := range h.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Harvest runs one (catalog, year) task: fetch, upsert, and write the sync
// log row. Failures are logged and recorded on the sync log, never
// propagated.
func (h *Harvester) Harvest(ctx context.Context, catalog string, year int, bbox domain.BBox) Result {
	res := Result{Catalog: catalog, Year: year}
	start := clock.Now().UTC()

	fetcher, ok := h.fetchers[catalog]
	if !ok {
		res.Err = fmt.Errorf("unknown catalog %q", catalog)
		h.finishTask(ctx, res, start)
		return res
	}

	q := domain.CatalogQuery{
		Year:      year,
		StartDate: fmt.Sprintf("%d-01-01", year),
		EndDate:   fmt.Sprintf("%d-12-31", year),
		BBox:      bbox,
	}

	events, err := fetcher.FetchEvents(ctx, q)
	if err != nil {
		res.Err = fmt.Errorf("fetch %s/%d: %w", catalog, year, err)
		h.finishTask(ctx, res, start)
		return res
	}

	res.Processed = len(events)
	res.Inserted, res.Updated, err = h.store.UpsertEvents(ctx, events)
	if err != nil {
		res = Result{Catalog: catalog, Year: year, Err: fmt.Errorf("store %s/%d: %w", catalog, year, err)}
	}

	h.finishTask(ctx, res, start)
	return res
}

// finishTask writes the sync log row and metrics for one completed task.
func (h *Harvester) finishTask(ctx context.Context, res Result, start time.Time) {
	end := clock.Now().UTC()
	entry := store.CatalogSyncEntry{
		Catalog:   res.Catalog,
		Year:      res.Year,
		StartTime: start,
		EndTime:   end,
		Processed: res.Processed,
		Inserted:  res.Inserted,
		Updated:   res.Updated,
		Status:    store.SyncCompleted,
	}

	outcome := "completed"
	if res.Err != nil {
		entry.Status = store.SyncFailed
		entry.ErrorMsg = res.Err.Error()
		outcome = "failed"
		h.logger.Error("harvest task failed",
			"catalog", res.Catalog, "year", res.Year, "error", res.Err)
	} else {
		h.logger.Info("harvest task completed",
			"catalog", res.Catalog, "year", res.Year,
			"processed", res.Processed, "inserted", res.Inserted, "updated", res.Updated)
		h.metrics.EventsHarvested.Add(float64(res.Processed))
	}

	h.metrics.HarvestTasks.WithLabelValues(res.Catalog, outcome).Inc()
	h.metrics.HarvestDuration.Observe(end.Sub(start).Seconds())

	if err := h.store.LogCatalogSync(ctx, entry); err != nil {
		h.logger.Error("writing catalog sync log failed",
			"catalog", res.Catalog, "year", res.Year, "error", err)
	}
}

// HarvestMany fans one task per (catalog, year) pair onto the worker pool.
// A failing task never cancels its siblings.
func (h *Harvester) HarvestMany(ctx context.Context, catalogs []string, years []int, bbox domain.BBox) Summary {
	type task struct {
		catalog string
		year    int
	}
	var tasks []task
	for _, c := range catalogs {
		for _, y := range years {
			tasks = append(tasks, task{c, y})
		}
	}

	results := make(chan Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			results <- h.Harvest(gctx, t.catalog, t.year, bbox)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // tasks never return errors
	close(results)

	var sum Summary
	for res := range results {
		sum.add(res)
	}

	h.logger.Info("harvest run finished",
		"tasks", sum.Tasks, "failed", sum.Failed,
		"processed", sum.Processed, "inserted", sum.Inserted, "updated", sum.Updated)
	return sum
}

// HarvestCSV ingests one catalog archive file. A missing required column
// fails the whole file before any row is stored.
func (h *Harvester) HarvestCSV(ctx context.Context, catalog, path string, filter csvcatalog.Filter) Result {
	res := Result{Catalog: catalog, Year: filter.MinYear}
	start := clock.Now().UTC()

	events, err := h.csv.FetchFileFiltered(path, filter)
	if err != nil {
		res.Err = fmt.Errorf("read archive %s: %w", path, err)
		h.finishTask(ctx, res, start)
		return res
	}

	res.Processed = len(events)
	res.Inserted, res.Updated, err = h.store.UpsertEvents(ctx, events)
	if err != nil {
		res = Result{Catalog: catalog, Year: filter.MinYear, Err: fmt.Errorf("store archive %s: %w", path, err)}
	}

	h.finishTask(ctx, res, start)
	return res
}

// HarvestCSVDir ingests every *.csv under baseDir/<catalog>/ for each
// catalog, one pool task per file, with the same fault isolation as
// HarvestMany.
func (h *Harvester) HarvestCSVDir(ctx context.Context, catalogs []string, baseDir string, filter csvcatalog.Filter) (Summary, error) {
	type task struct {
		catalog string
		path    string
	}
	var tasks []task
	for _, c := range catalogs {
		paths, err := filepath.Glob(filepath.Join(baseDir, c, "*.csv"))
		if err != nil {
			return Summary{}, fmt.Errorf("list archives for %s: %w", c, err)
		}
		if len(paths) == 0 {
			h.logger.Warn("no archives found", "catalog", c, "dir", filepath.Join(baseDir, c))
		}
		for _, p := range paths {
			tasks = append(tasks, task{c, p})
		}
	}

	results := make(chan Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			results <- h.HarvestCSV(gctx, t.catalog, t.path, filter)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // tasks never return errors
	close(results)

	var sum Summary
	for res := range results {
		sum.add(res)
	}
	return sum, nil
}
