package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandes/seismic-harvest/internal/domain"
	"github.com/geoandes/seismic-harvest/internal/observability"
	"github.com/geoandes/seismic-harvest/internal/store"
)

func newTestPipeline(st RecordStore, network ReportFetcher, dataDir string, timeout time.Duration) *Pipeline {
	return New(st, network, observability.NewMetricsForTesting(), testLogger(), dataDir, timeout)
}

func seedEvents(t *testing.T, st *store.Store, ids ...string) []Candidate {
	t.Helper()
	var events []domain.SeismicEvent
	var candidates []Candidate
	for i, id := range ids {
		eventTime := time.Date(2023, 11, 17, 10, 30+i, 0, 0, time.UTC)
		events = append(events, domain.SeismicEvent{
			EventID: id, Agency: "IGP", Catalog: "IGP", EventTime: eventTime,
			Longitude: -76.9, Latitude: -12.1,
		})
		candidates = append(candidates, Candidate{
			EventID: id, Catalog: "IGP", EventTime: eventTime.Format(time.RFC3339),
		})
	}
	_, _, err := st.UpsertEvents(context.Background(), events)
	require.NoError(t, err)
	return candidates
}

func TestRun_EndToEnd(t *testing.T) {
	st := openTestStore(t)
	network := &fakeNetwork{
		stations: []domain.StationInfo{station("AAAA"), station("BBBB"), station("CCCC")},
		reports: map[string]string{
			"AAAA": reportText(50),
			"BBBB": reportText(50),
		},
	}
	p := newTestPipeline(st, network, t.TempDir(), 0)
	candidates := seedEvents(t, st, "igp_001", "igp_002")

	run, err := p.Run(context.Background(), "IGP", candidates, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, store.SyncCompleted, run.Status)
	assert.Equal(t, 2, run.EventsProcessed)
	assert.Equal(t, 2, run.EventsSaved)
	assert.Equal(t, 0, run.EventsFailed)
	assert.Equal(t, 4, run.RecordsSaved)
	assert.Equal(t, 200, run.SamplesStored)
	assert.Equal(t, 4, run.StationsByStatus[StatusSuccess])
	assert.Equal(t, 2, run.StationsByStatus[StatusFileNotFound])
	assert.Empty(t, run.Errors)

	// Both events now have records, so the pending query converges.
	pending, err := p.EventsToProcess(context.Background(), "IGP", 100)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRun_EventTimeoutBecomesFailedEvent(t *testing.T) {
	st := openTestStore(t)
	network := &fakeNetwork{
		stations: []domain.StationInfo{station("AAAA")},
		reports:  map[string]string{"AAAA": reportText(10)},
		delay:    5 * time.Second,
	}
	p := newTestPipeline(st, network, t.TempDir(), 50*time.Millisecond)
	candidates := seedEvents(t, st, "igp_001")

	run, err := p.Run(context.Background(), "IGP", candidates, 1, 1)
	require.NoError(t, err, "a timed-out event fails the event, not the run")

	assert.Equal(t, store.SyncCompletedWithErrors, run.Status)
	assert.Equal(t, 1, run.EventsProcessed)
	assert.Equal(t, 1, run.EventsFailed)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "igp_001")
}

func TestRun_SessionRecorded(t *testing.T) {
	st := openTestStore(t)
	network := &fakeNetwork{
		stations: []domain.StationInfo{station("AAAA")},
		reports:  map[string]string{"AAAA": reportText(10)},
	}
	p := newTestPipeline(st, network, t.TempDir(), 0)
	candidates := seedEvents(t, st, "igp_001")

	run, err := p.Run(context.Background(), "IGP", candidates, 1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)

	// Session id 1 is the first row in a fresh database.
	session, err := st.GetRecordSync(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, session.RunID)
	assert.Equal(t, store.SyncCompleted, session.Status)
	assert.Equal(t, 1, session.Processed)
	assert.Equal(t, 1, session.Inserted)
	assert.False(t, session.EndTime.IsZero())
}

// failingSessionStore fails the session open; everything else is unreachable.
type failingSessionStore struct {
	RecordStore
}

func (f *failingSessionStore) StartRecordSync(context.Context, string, string, int, time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestRun_SessionOpenFailureFailsRun(t *testing.T) {
	p := newTestPipeline(&failingSessionStore{}, &fakeNetwork{}, t.TempDir(), 0)

	_, err := p.Run(context.Background(), "IGP", []Candidate{{EventID: "igp_001"}}, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start sync session")
}

func TestRun_NoEvents(t *testing.T) {
	st := openTestStore(t)
	p := newTestPipeline(st, &fakeNetwork{}, t.TempDir(), 0)

	run, err := p.Run(context.Background(), "IGP", nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, store.SyncCompleted, run.Status)
	assert.Zero(t, run.EventsProcessed)
}

func TestEventsToProcess(t *testing.T) {
	st := openTestStore(t)
	p := newTestPipeline(st, &fakeNetwork{}, t.TempDir(), 0)
	seedEvents(t, st, "igp_001", "igp_002")

	candidates, err := p.EventsToProcess(context.Background(), "IGP", 10)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, "IGP", c.Catalog)
		assert.NotEmpty(t, c.EventTime)
	}
}
