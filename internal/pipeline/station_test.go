package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandes/seismic-harvest/internal/adapter/strongmotion"
	"github.com/geoandes/seismic-harvest/internal/domain"
	"github.com/geoandes/seismic-harvest/internal/observability"
	"github.com/geoandes/seismic-harvest/internal/store"
)

// fakeNetwork serves canned station lists and report bodies. Reports are
// keyed by station code; a missing key behaves like a 404. It mirrors the
// real client's side effect of writing the downloaded body to destPath.
type fakeNetwork struct {
	stations []domain.StationInfo
	reports  map[string]string
	fetchErr error
	delay    time.Duration
}

func (f *fakeNetwork) FetchEventStations(ctx context.Context, _ time.Time) (strongmotion.EventData, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return strongmotion.EventData{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.fetchErr != nil {
		return strongmotion.EventData{}, f.fetchErr
	}
	return strongmotion.EventData{ExternalID: "ext1", Stations: f.stations}, nil
}

func (f *fakeNetwork) ReportURL(_ string, _ time.Time, stationCode, _ string) string {
	return stationCode
}

func (f *fakeNetwork) DownloadReport(_ context.Context, url, destPath string) (string, error) {
	content, ok := f.reports[url]
	if !ok {
		return "", strongmotion.ErrFileNotFound
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return content, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func station(code string) domain.StationInfo {
	return domain.StationInfo{
		Code: code, Name: "Estacion " + code,
		Latitude: -12.1, Longitude: -76.9, Network: "PE",
	}
}

// reportText builds a minimal valid acceleration report with n samples.
func reportText(n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "3. REGISTRO\nNÚMERO DE MUESTRAS : %d\nMUESTREO : 100 muestras/seg\nPGA : 1.5 -2.5 0.5\n\n", n)
	sb.WriteString("       Z        N        E\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, " %8.4f %8.4f %8.4f\n", float64(i)*0.01, float64(i)*-0.01, float64(i)*0.02)
	}
	sb.WriteString("FIN DEL REGISTRO\n")
	return sb.String()
}

func newTestProcessor(st *store.Store, network ReportFetcher, dataDir string) *StationProcessor {
	return NewStationProcessor(st, network, observability.NewMetricsForTesting(),
		testLogger(), "IGP", dataDir, 2, nil)
}

func TestProcess_PartialStationFailure(t *testing.T) {
	st := openTestStore(t)
	dataDir := t.TempDir()
	network := &fakeNetwork{
		stations: []domain.StationInfo{station("AAAA"), station("BBBB")},
		reports:  map[string]string{"AAAA": reportText(50)},
	}
	proc := newTestProcessor(st, network, dataDir)

	eventTime := time.Date(2023, 11, 17, 10, 30, 0, 0, time.UTC)
	saved := proc.Process(context.Background(), "igp_001", eventTime)
	assert.True(t, saved, "one good station is enough")

	results := proc.Results()
	require.Len(t, results, 2)
	byCode := map[string]StationResult{}
	for _, r := range results {
		byCode[r.Code] = r
	}
	assert.Equal(t, StatusSuccess, byCode["AAAA"].Status)
	assert.Equal(t, 50, byCode["AAAA"].Samples)
	assert.Equal(t, StatusFileNotFound, byCode["BBBB"].Status)

	// The good station's record and samples landed.
	stationID, err := st.UpsertStation(context.Background(), station("AAAA"))
	require.NoError(t, err)
	rec, recordID, err := st.GetAccelerationRecord(context.Background(), "igp_001", stationID)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.NumSamples)
	assert.Equal(t, 100.0, rec.SamplingFrequency)
	assert.Equal(t, 1.5, rec.PGAVertical)

	samples, err := st.GetSamples(context.Background(), recordID)
	require.NoError(t, err)
	assert.Len(t, samples, 50)

	// The raw file is kept for offline re-parsing.
	_, err = os.Stat(filepath.Join(dataDir, "IGP", "igp_001_AAAA.txt"))
	assert.NoError(t, err)
}

func TestProcess_StationListFetchFails(t *testing.T) {
	st := openTestStore(t)
	network := &fakeNetwork{fetchErr: errors.New("service unavailable")}
	proc := newTestProcessor(st, network, t.TempDir())

	saved := proc.Process(context.Background(), "igp_001", time.Now().UTC())
	assert.False(t, saved)
	assert.Empty(t, proc.Results())
}

func TestProcess_NoStations(t *testing.T) {
	st := openTestStore(t)
	proc := newTestProcessor(st, &fakeNetwork{}, t.TempDir())

	saved := proc.Process(context.Background(), "igp_001", time.Now().UTC())
	assert.False(t, saved)
}

func TestProcess_ParseError(t *testing.T) {
	st := openTestStore(t)
	network := &fakeNetwork{
		stations: []domain.StationInfo{station("AAAA")},
		reports:  map[string]string{"AAAA": "not a report at all"},
	}
	proc := newTestProcessor(st, network, t.TempDir())

	saved := proc.Process(context.Background(), "igp_001", time.Now().UTC())
	assert.False(t, saved)

	results := proc.Results()
	require.Len(t, results, 1)
	assert.Equal(t, StatusParseError, results[0].Status)
}

func TestStationCache_SharedAcrossEvents(t *testing.T) {
	st := openTestStore(t)
	cache := newStationCache()
	ctx := context.Background()

	first, err := cache.id(ctx, st, station("AAAA"))
	require.NoError(t, err)
	second, err := cache.id(ctx, st, station("AAAA"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
