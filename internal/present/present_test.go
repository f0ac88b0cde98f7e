package present

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItinerary() models.Itinerary {
	msk := time.FixedZone("MSK", 3*3600)
	dep1 := time.Date(2025, 5, 1, 12, 0, 0, 0, msk)
	dep2 := time.Date(2025, 5, 1, 14, 0, 0, 0, msk)

	first := models.LegChoice{LegCandidate: models.LegCandidate{
		FromCode: "c213", ToCode: "c14",
		DepartureUTC: dep1.UTC(), ArrivalUTC: dep1.Add(90 * time.Minute).UTC(),
		DepartureLocal: dep1, ArrivalLocal: dep1.Add(90 * time.Minute),
		Duration: 90 * time.Minute, TransportType: models.TransportTrain, Number: "752A",
	}}
	second := models.LegChoice{LegCandidate: models.LegCandidate{
		FromCode: "c14", ToCode: "c2",
		DepartureUTC: dep2.UTC(), ArrivalUTC: dep2.Add(3 * time.Hour).UTC(),
		DepartureLocal: dep2, ArrivalLocal: dep2.Add(3 * time.Hour),
		Duration: 3 * time.Hour, TransportType: models.TransportBus,
	}, Waiting: 30 * time.Minute}

	return models.Itinerary{
		Legs:       []models.LegChoice{first, second},
		TotalTime:  5 * time.Hour,
		TravelTime: 4*time.Hour + 30*time.Minute,
	}
}

func TestHours(t *testing.T) {
	tests := []struct {
		d         time.Duration
		precision int
		want      string
	}{
		{90 * time.Minute, 1, "1.5"},
		{5 * time.Hour, 2, "5.00"},
		{20 * time.Minute, 2, "0.33"},
		{0, 1, "0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Hours(tt.d, tt.precision))
		})
	}
}

func TestText(t *testing.T) {
	dir := models.Directory{"c213": "Moscow", "c2": "Saint Petersburg"}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, []models.Itinerary{sampleItinerary()}, dir))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Found 1 itineraries:\n\nItinerary #1:\n"))
	assert.Contains(t, out, "Total time: 5.00 h\nTravel time: 4.50 h\n")
	assert.Contains(t, out, "  Moscow -> place c14\n")
	assert.Contains(t, out, "  Transport: train 752A\n")
	assert.Contains(t, out, "  Local departure: 2025-05-01 12:00\n  Local arrival: 2025-05-01 13:30\n")
	assert.Contains(t, out, "  Travel: 3.0 h\n  Waiting: 0.5 h\n")
	assert.Equal(t, 2, strings.Count(out, strings.Repeat("-", 40)+"\n"))
}

func TestTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, nil, nil))
	assert.Equal(t, "No itineraries found\n", buf.String())
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	err := PDF(&buf, []models.Itinerary{sampleItinerary()}, models.Directory{"c213": "Moscow"}, PDFOptions{Title: "Moscow trip"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	t.Run("missing font file", func(t *testing.T) {
		var buf bytes.Buffer
		err := PDF(&buf, nil, nil, PDFOptions{FontPath: "/nonexistent/font.ttf"})
		assert.Error(t, err)
	})
}

func TestViews(t *testing.T) {
	views := Views([]models.Itinerary{sampleItinerary()}, models.Directory{"c213": "Moscow"})
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, int64(5*3600), v.TotalSeconds)
	assert.Equal(t, "4.50", v.TravelHours)
	require.Len(t, v.Legs, 2)
	assert.Equal(t, "Moscow", v.Legs[0].FromName)
	assert.Equal(t, "place c14", v.Legs[0].ToName)
	assert.Equal(t, "2025-05-01T12:00:00+03:00", v.Legs[0].DepartureLocal)
	assert.Equal(t, int64(1800), v.Legs[1].WaitingSeconds)

	assert.NotNil(t, Views(nil, nil))
}
