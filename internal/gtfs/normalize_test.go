package gtfs

import (
	"testing"

	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferTransportType(t *testing.T) {
	tests := []struct {
		name     string
		route    models.GTFSRoute
		expected models.TransportType
	}{
		{"bus from route type", models.GTFSRoute{RouteID: "1", RouteType: 3}, models.TransportBus},
		{"train from route type", models.GTFSRoute{RouteID: "2", RouteType: 2}, models.TransportTrain},
		{"extended rail type", models.GTFSRoute{RouteID: "3", RouteType: 102}, models.TransportTrain},
		{"ferry from route type", models.GTFSRoute{RouteID: "4", RouteType: 4}, models.TransportWater},
		{"tram from route type", models.GTFSRoute{RouteID: "5", RouteType: 0}, models.TransportTram},
		{"air service type", models.GTFSRoute{RouteID: "6", RouteType: 1100}, models.TransportPlane},
		{"coach service type", models.GTFSRoute{RouteID: "7", RouteType: 202}, models.TransportBus},
		{"suburban keyword wins", models.GTFSRoute{RouteID: "8", LongName: "Suburban line", RouteType: 2}, models.TransportSuburban},
		{"ferry keyword", models.GTFSRoute{RouteID: "9", ShortName: "Boat 4", RouteType: 3}, models.TransportWater},
		{"default to bus", models.GTFSRoute{RouteID: "10", RouteType: 999}, models.TransportBus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferTransportType(tt.route))
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{"zero distance", 55.7558, 37.6173, 55.7558, 37.6173, 0, 1},
		{"approximately 1km", 55.7558, 37.6173, 55.7648, 37.6173, 1000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := haversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, result, tt.delta)
		})
	}
}

func TestDeduplicateStops(t *testing.T) {
	stops := []models.GTFSStop{
		{StopID: "a", Lat: 55.7558, Lon: 37.6173},
		{StopID: "b", Lat: 55.7559, Lon: 37.6173},
		{StopID: "c", Lat: 59.9343, Lon: 30.3351},
	}

	t.Run("merges close stops", func(t *testing.T) {
		kept, mapping := DeduplicateStops(stops, 30)
		require.Len(t, kept, 2)
		assert.Equal(t, "a", mapping["a"])
		assert.Equal(t, "a", mapping["b"])
		assert.Equal(t, "c", mapping["c"])
	})

	t.Run("zero threshold keeps everything", func(t *testing.T) {
		kept, mapping := DeduplicateStops(stops, 0)
		assert.Len(t, kept, 3)
		assert.Equal(t, "b", mapping["b"])
	})
}

func TestParseTimeToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		timeStr  string
		expected int
		hasError bool
	}{
		{"valid time", "12:30:00", 12*3600 + 30*60, false},
		{"single digit hour", "7:05:09", 7*3600 + 5*60 + 9, false},
		{"midnight", "00:00:00", 0, false},
		{"next day service", "25:30:00", 25*3600 + 30*60, false},
		{"invalid format", "12:30", 0, true},
		{"non numeric", "12:xx:00", 0, true},
		{"minutes out of range", "12:75:00", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimeToSeconds(tt.timeStr)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestInterpolateStopTimes(t *testing.T) {
	t.Run("fills gaps linearly", func(t *testing.T) {
		result := InterpolateStopTimes([]models.GTFSStopTime{
			{StopID: "a", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
			{StopID: "b", StopSequence: 2},
			{StopID: "c", StopSequence: 3},
			{StopID: "d", StopSequence: 4, ArrivalTime: "08:30:00", DepartureTime: "08:32:00"},
		})
		require.Len(t, result, 4)
		assert.Equal(t, 8*3600+10*60, result[1].Departure)
		assert.Equal(t, 8*3600+20*60, result[2].Arrival)
		assert.Equal(t, 8*3600+32*60, result[3].Departure)
	})

	t.Run("drops untimed ends", func(t *testing.T) {
		result := InterpolateStopTimes([]models.GTFSStopTime{
			{StopID: "a", StopSequence: 1},
			{StopID: "b", StopSequence: 2, ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
			{StopID: "c", StopSequence: 3, DepartureTime: "10:00:00"},
			{StopID: "d", StopSequence: 4},
		})
		require.Len(t, result, 2)
		assert.Equal(t, "b", result[0].StopID)
		assert.Equal(t, 10*3600, result[1].Arrival)
	})

	t.Run("single timed stop yields nothing", func(t *testing.T) {
		result := InterpolateStopTimes([]models.GTFSStopTime{
			{StopID: "a", StopSequence: 1, ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
			{StopID: "b", StopSequence: 2},
		})
		assert.Empty(t, result)
	})
}

func TestValidateAndCleanStops(t *testing.T) {
	tests := []struct {
		name     string
		stops    []models.GTFSStop
		expected int
	}{
		{
			name: "all valid stops",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 55.7, Lon: 37.6},
				{StopID: "2", Lat: 59.9, Lon: 30.3},
			},
			expected: 2,
		},
		{
			name: "filter invalid latitude",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 55.7, Lon: 37.6},
				{StopID: "2", Lat: 95.0, Lon: 30.3},
			},
			expected: 1,
		},
		{
			name: "filter null island",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 55.7, Lon: 37.6},
				{StopID: "2", Lat: 0.0, Lon: 0.0},
			},
			expected: 1,
		},
		{
			name: "filter invalid longitude",
			stops: []models.GTFSStop{
				{StopID: "1", Lat: 55.7, Lon: 37.6},
				{StopID: "2", Lat: 59.9, Lon: 200.0},
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndCleanStops(tt.stops)
			assert.Equal(t, tt.expected, len(result))
		})
	}
}
