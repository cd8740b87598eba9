package isc

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandes/seismic-harvest/internal/domain"
)

const catcsvBody = `International Seismological Centre
DATA_TYPE EVENT_CATALOGUE
  EVENTID,TYPE,AUTHOR   ,DATE      ,TIME       ,LAT     ,LON      ,DEPTH,DEPFIX,AUTHOR   ,TYPE  ,MAG
625097353,ke,ISC       ,2023-11-17,04:31:09.82,-11.9412,-76.8534 ,102.5,      ,ISC      ,mb    ,5.2
625097354,ke,ISC       ,2023-11-18,09:15:00   ,-13.1020,-74.2210 ,     ,      ,ISC      ,      ,
badline,with,too,few
  STOP
ignored trailing text
`

func newTestClient(t *testing.T, body string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CATCSV", r.URL.Query().Get("out_format"))
		assert.Equal(t, "2023", r.URL.Query().Get("start_year"))
		assert.Equal(t, "12", r.URL.Query().Get("end_month"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, slog.Default()), srv
}

func testQuery() domain.CatalogQuery {
	return domain.CatalogQuery{
		Year:      2023,
		StartDate: "2023-01-01",
		EndDate:   "2023-12-31",
		BBox:      domain.BBox{MinLat: -21, MaxLat: 0.5, MinLon: -82.5, MaxLon: -67.5},
	}
}

func TestFetchEvents(t *testing.T) {
	c, _ := newTestClient(t, catcsvBody)

	events, err := c.FetchEvents(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, events, 2, "malformed line skipped, sentinel respected")

	first := events[0]
	assert.Equal(t, "625097353", first.EventID)
	assert.Equal(t, "ISC", first.Agency)
	assert.Equal(t, "isc", first.Catalog)
	assert.Equal(t, time.Date(2023, 11, 17, 4, 31, 9, 820000000, time.UTC), first.EventTime)
	assert.Equal(t, -11.9412, first.Latitude)
	assert.Equal(t, -76.8534, first.Longitude)
	require.NotNil(t, first.Depth)
	assert.Equal(t, 102.5, *first.Depth)
	require.NotNil(t, first.Magnitude)
	assert.Equal(t, 5.2, *first.Magnitude)
	assert.Equal(t, "mb", first.MagType)

	second := events[1]
	assert.Nil(t, second.Depth, "blank depth column stays absent")
	assert.Nil(t, second.Magnitude)
}

func TestFetchEvents_EmptyResult(t *testing.T) {
	c, _ := newTestClient(t, "Some header\nNo events were found.\n")

	events, err := c.FetchEvents(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchEvents_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, slog.Default())
	_, err := c.FetchEvents(context.Background(), testQuery())
	assert.ErrorContains(t, err, "status 500")
}
