package planner

import (
	"fmt"
	"time"

	"github.com/passbi/passbi_itinerary/internal/config"
	"github.com/passbi/passbi_itinerary/internal/models"
)

// ExpandStops builds the stop list of an interactive session: the origin on
// date, each waypoint on its own date, then the destination. The destination
// has no departure of its own and reuses the last date given.
func ExpandStops(origin, destination string, date time.Time, waypoints []StopRequest) []StopRequest {
	stops := make([]StopRequest, 0, len(waypoints)+2)
	stops = append(stops, StopRequest{Name: origin, Date: date})
	stops = append(stops, waypoints...)

	last := date
	if len(waypoints) > 0 {
		last = waypoints[len(waypoints)-1].Date
	}
	return append(stops, StopRequest{Name: destination, Date: last})
}

// RequestFromTrip converts a trip document into a planning request. Each date
// becomes the start of that UTC day.
func RequestFromTrip(trip *config.Trip) (TripRequest, error) {
	if err := trip.Normalize(); err != nil {
		return TripRequest{}, models.InvalidTripError{Msg: err.Error()}
	}

	req := TripRequest{Criterion: trip.Criterion, Stops: make([]StopRequest, len(trip.Stops))}
	for i, s := range trip.Stops {
		date, err := config.ParseDate(s.Date)
		if err != nil {
			return TripRequest{}, models.InvalidTripError{Field: fmt.Sprintf("stops[%d].date", i), Msg: err.Error()}
		}
		req.Stops[i] = StopRequest{Name: s.City, Date: date}
	}
	return req, nil
}
