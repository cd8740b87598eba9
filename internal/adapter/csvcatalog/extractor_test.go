package csvcatalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

const validHeader = "event_id,year,month,day,hour,minute,second,latitude,longitude,depth,magnitude,magType,catalog\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFetchFile(t *testing.T) {
	path := writeCSV(t, validHeader+
		"igp001,2022,3,15,10,30,45,-12.05,-77.04,110.5,5.8,Mw,igp\n"+
		"igp002,2023,7,1,0,0,0,-13.50,-72.10,,4.1,ML,igp\n"+
		"igp003,2023,7,1,0,0,0,,-72.10,30,4.1,ML,igp\n"+ // null latitude: skipped
		"igp004,2023,13,1,0,0,0,-13.50,-72.10,30,4.1,ML,igp\n") // month 13: skipped

	e := New(',', slog.Default())
	events, err := e.FetchFile(path)
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "igp001", first.EventID)
	assert.Equal(t, "igp", first.Agency)
	assert.Equal(t, "igp", first.Catalog)
	assert.Equal(t, time.Date(2022, 3, 15, 10, 30, 45, 0, time.UTC), first.EventTime)
	require.NotNil(t, first.Depth)
	assert.Equal(t, 110.5, *first.Depth)
	require.NotNil(t, first.Magnitude)
	assert.Equal(t, 5.8, *first.Magnitude)
	assert.Equal(t, "Mw", first.MagType)

	assert.Nil(t, events[1].Depth, "empty depth stays absent")
}

func TestFetchFile_MissingColumnFailsFast(t *testing.T) {
	// magType column removed entirely.
	path := writeCSV(t, "event_id,year,month,day,hour,minute,second,latitude,longitude,depth,magnitude,catalog\n"+
		"igp001,2022,3,15,10,30,45,-12.05,-77.04,110.5,5.8,igp\n")

	e := New(',', slog.Default())
	_, err := e.FetchFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns: magType")
}

func TestFetchFileFiltered(t *testing.T) {
	path := writeCSV(t, validHeader+
		"a,2019,1,1,0,0,0,-12.0,-77.0,10,5.0,ML,igp\n"+ // before MinYear
		"b,2022,1,1,0,0,0,-12.0,-77.0,10,5.0,ML,igp\n"+
		"c,2022,1,1,0,0,0,40.0,-77.0,10,5.0,ML,igp\n") // outside bbox

	e := New(',', slog.Default())
	events, err := e.FetchFileFiltered(path, Filter{
		MinYear: 2020,
		BBox:    domain.BBox{MinLat: -21, MaxLat: 0.5, MinLon: -82.5, MaxLon: -67.5},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].EventID)
}

func TestFetchFile_CustomDelimiter(t *testing.T) {
	content := "event_id;year;month;day;hour;minute;second;latitude;longitude;depth;magnitude;magType;catalog\n" +
		"x1;2022;3;15;10;30;45;-12.05;-77.04;110.5;5.8;Mw;isc\n"
	path := writeCSV(t, content)

	e := New(';', slog.Default())
	events, err := e.FetchFile(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "x1", events[0].EventID)
	assert.Equal(t, "isc", events[0].Catalog)
}

func TestFetchFile_MissingFile(t *testing.T) {
	e := New(',', slog.Default())
	_, err := e.FetchFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
