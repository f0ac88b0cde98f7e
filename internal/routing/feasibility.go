package routing

import (
	"fmt"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// ValidateTrip rejects stop sequences that cannot be searched
func ValidateTrip(stops []models.Stop) error {
	if len(stops) < 2 {
		return models.InvalidTripError{
			Field: "stops",
			Msg:   fmt.Sprintf("need at least 2 stops, got %d", len(stops)),
		}
	}

	for i, stop := range stops {
		if stop.Code == "" {
			return models.InvalidTripError{Field: fmt.Sprintf("stops[%d].code", i), Msg: "is empty"}
		}
		if stop.EarliestDeparture.IsZero() {
			return models.InvalidTripError{Field: fmt.Sprintf("stops[%d].earliest_departure", i), Msg: "is not set"}
		}
	}

	return nil
}

// departsAfterFloor reports whether c leaves no earlier than the stop allows
func departsAfterFloor(stop models.Stop, c models.LegCandidate) bool {
	return !c.DepartureUTC.Before(stop.EarliestDeparture)
}

// Waiting returns the idle time between prev's arrival and c's departure.
// ok is false when c leaves before prev arrives.
func Waiting(prev models.LegChoice, c models.LegCandidate) (wait time.Duration, ok bool) {
	wait = c.DepartureUTC.Sub(prev.ArrivalUTC)
	if wait < 0 {
		return 0, false
	}
	return wait, true
}

// CheckItinerary verifies that it is a valid itinerary through stops: leg
// endpoints, departure floors, non-negative waits and exact time accounting.
func CheckItinerary(stops []models.Stop, it models.Itinerary) error {
	if len(it.Legs) != len(stops)-1 {
		return fmt.Errorf("itinerary has %d legs for %d stops", len(it.Legs), len(stops))
	}

	var travel, total time.Duration
	for i, leg := range it.Legs {
		if leg.FromCode != stops[i].Code || leg.ToCode != stops[i+1].Code {
			return fmt.Errorf("leg %d serves %s, want %s->%s", i, leg.Pair(), stops[i].Code, stops[i+1].Code)
		}
		if !departsAfterFloor(stops[i], leg.LegCandidate) {
			return fmt.Errorf("leg %d departs %s before %s", i, leg.DepartureUTC, stops[i].EarliestDeparture)
		}

		wantWait := time.Duration(0)
		if i > 0 {
			w, ok := Waiting(it.Legs[i-1], leg.LegCandidate)
			if !ok {
				return fmt.Errorf("leg %d departs before leg %d arrives", i, i-1)
			}
			wantWait = w
		}
		if leg.Waiting != wantWait {
			return fmt.Errorf("leg %d waiting = %s, want %s", i, leg.Waiting, wantWait)
		}

		travel += leg.Duration
		total += leg.Duration + leg.Waiting
	}

	if it.TravelTime != travel {
		return fmt.Errorf("travel time = %s, want %s", it.TravelTime, travel)
	}
	if it.TotalTime != total {
		return fmt.Errorf("total time = %s, want %s", it.TotalTime, total)
	}
	return nil
}
