package routing

import (
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// CandidateIndex provides the candidate legs for a stop-pair
type CandidateIndex interface {
	Candidates(pair models.StopPair) []models.LegCandidate
}

// Search enumerates every feasible itinerary through stops, in discovery
// order. A leg is feasible when it departs no earlier than its stop's
// earliest departure and no earlier than the previous leg's arrival.
// A stop-pair without candidates yields an empty result, not an error.
// Callers validate stops with ValidateTrip first.
func Search(stops []models.Stop, idx CandidateIndex) []models.Itinerary {
	s := &searchState{
		stops:   stops,
		idx:     idx,
		results: []models.Itinerary{},
	}
	if len(stops) < 2 {
		return s.results
	}

	s.path = make([]models.LegChoice, 0, len(stops)-1)
	s.visit(0, 0)
	return s.results
}

// searchState is the transient DFS state. path is shared by every branch and
// restored on backtrack; only complete paths are copied out.
type searchState struct {
	stops   []models.Stop
	idx     CandidateIndex
	path    []models.LegChoice
	results []models.Itinerary
}

// visit picks the leg from stop i to stop i+1. total is the running sum of
// duration and waiting over the current path.
func (s *searchState) visit(i int, total time.Duration) {
	if i == len(s.stops)-1 {
		s.emit(total)
		return
	}

	pair := models.StopPair{From: s.stops[i].Code, To: s.stops[i+1].Code}

	for _, c := range s.idx.Candidates(pair) {
		if !departsAfterFloor(s.stops[i], c) {
			continue
		}

		var waiting time.Duration
		if i > 0 {
			w, ok := Waiting(s.path[i-1], c)
			if !ok {
				continue
			}
			waiting = w
		}

		s.path = append(s.path, models.LegChoice{LegCandidate: c, Waiting: waiting})
		s.visit(i+1, total+c.Duration+waiting)
		s.path = s.path[:len(s.path)-1]
	}
}

func (s *searchState) emit(total time.Duration) {
	legs := make([]models.LegChoice, len(s.path))
	copy(legs, s.path)

	var travel time.Duration
	for _, leg := range legs {
		travel += leg.Duration
	}

	s.results = append(s.results, models.Itinerary{
		Legs:       legs,
		TotalTime:  total,
		TravelTime: travel,
	})
}
