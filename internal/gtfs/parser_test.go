package gtfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStops(t *testing.T) {
	input := "\ufeffstop_id,stop_name,stop_lat,stop_lon\n" +
		"msk,Moscow,55.7558,37.6173\n" +
		"bad,Broken,north,37.0\n" +
		",No id,55.0,37.0\n" +
		"spb, Saint Petersburg ,59.9343,30.3351\n"

	stops, err := ParseStops(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "msk", stops[0].StopID)
	assert.Equal(t, "Saint Petersburg", stops[1].StopName)
	assert.InDelta(t, 59.9343, stops[1].Lat, 1e-9)
}

func TestParseStopTimes(t *testing.T) {
	input := "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"t1,08:00:00,08:00:00,msk,1\n" +
		"t1,,,tver,2\n" +
		"t1,12:00:00,12:00:00,spb,x\n"

	stopTimes, err := ParseStopTimes(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stopTimes, 2)
	assert.Equal(t, 2, stopTimes[1].StopSequence)
	assert.Empty(t, stopTimes[1].ArrivalTime)
}

func TestParseCalendars(t *testing.T) {
	input := "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"weekdays,1,1,1,1,1,0,0,20250101,20251231\n" +
		"broken,1,1,1,1,1,1,1,2025-01-01,20251231\n"

	calendars, err := ParseCalendars(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, calendars, 1)

	cal := calendars[0]
	assert.True(t, cal.Weekdays[time.Monday])
	assert.False(t, cal.Weekdays[time.Sunday])
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), cal.EndDate)
}

func TestParseCalendarDates(t *testing.T) {
	input := "service_id,date,exception_type\n" +
		"weekdays,20250505,2\n" +
		"weekdays,20250510,1\n"

	dates, err := ParseCalendarDates(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, 2, dates[0].ExceptionType)
	assert.Equal(t, time.Saturday, dates[1].Date.Weekday())
}

func TestParseEmptyFile(t *testing.T) {
	_, err := ParseRoutes(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseZip(t *testing.T) {
	files := map[string]string{
		"feed/agency.txt":     "agency_id,agency_name,agency_url,agency_timezone\nrzd,RZD,https://rzd.example,Europe/Moscow\n",
		"feed/stops.txt":      "stop_id,stop_name,stop_lat,stop_lon\nmsk,Moscow,55.7558,37.6173\nspb,Saint Petersburg,59.9343,30.3351\n",
		"feed/routes.txt":     "route_id,agency_id,route_short_name,route_long_name,route_type\nr1,rzd,752,Sapsan,2\n",
		"feed/trips.txt":      "route_id,service_id,trip_id,trip_headsign\nr1,daily,t1,Saint Petersburg\n",
		"feed/stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,08:00:00,08:00:00,msk,1\nt1,12:00:00,12:00:00,spb,2\n",
	}

	zipPath := filepath.Join(t.TempDir(), "feed.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	feed, err := ParseZip(zipPath)
	require.NoError(t, err)
	assert.Len(t, feed.Stops, 2)
	assert.Len(t, feed.StopTimes, 2)
	assert.Empty(t, feed.Calendars)
	assert.Equal(t, "Europe/Moscow", feed.Timezone().String())

	t.Run("missing required file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.zip")
		f, err := os.Create(bad)
		require.NoError(t, err)
		zw := zip.NewWriter(f)
		w, err := zw.Create("stops.txt")
		require.NoError(t, err)
		_, err = w.Write([]byte(files["feed/stops.txt"]))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())

		_, err = ParseZip(bad)
		assert.ErrorContains(t, err, "routes.txt")
	})
}
