package routing

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func tripStops(codes ...string) []models.Stop {
	stops := make([]models.Stop, len(codes))
	for i, code := range codes {
		stops[i] = models.Stop{Name: "City " + code, Code: code, EarliestDeparture: t0}
	}
	return stops
}

func candidate(id, from, to string, dep time.Time, dur time.Duration) models.LegCandidate {
	return models.LegCandidate{
		ID:             id,
		FromCode:       from,
		ToCode:         to,
		DepartureUTC:   dep,
		ArrivalUTC:     dep.Add(dur),
		DepartureLocal: dep,
		ArrivalLocal:   dep.Add(dur),
		Duration:       dur,
		TransportType:  models.TransportTrain,
		ScheduleID:     id,
	}
}

func indexOf(legs ...models.LegCandidate) *store.CandidateStore {
	s := store.New()
	s.Add(legs...)
	return s
}

func legIDs(it models.Itinerary) string {
	ids := make([]string, len(it.Legs))
	for i, leg := range it.Legs {
		ids[i] = leg.ID
	}
	return strings.Join(ids, "+")
}

func TestSearchScenarios(t *testing.T) {
	t.Run("Single leg trip", func(t *testing.T) {
		stops := tripStops("X", "Y")
		idx := indexOf(candidate("a", "X", "Y", t0.Add(time.Hour), 2*time.Hour))

		its := Search(stops, idx)

		require.Len(t, its, 1)
		assert.Equal(t, 2*time.Hour, its[0].TravelTime)
		assert.Equal(t, 2*time.Hour, its[0].TotalTime)
		require.Len(t, its[0].Legs, 1)
		assert.Equal(t, time.Duration(0), its[0].Legs[0].Waiting)
	})

	t.Run("Connection leaving before arrival is rejected", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		idx := indexOf(
			candidate("xy", "X", "Y", t0, 2*time.Hour),
			candidate("early", "Y", "Z", t0.Add(time.Hour), time.Hour),
			candidate("late", "Y", "Z", t0.Add(3*time.Hour), time.Hour),
		)

		its := Search(stops, idx)

		require.Len(t, its, 1)
		assert.Equal(t, "xy+late", legIDs(its[0]))
		assert.Equal(t, time.Hour, its[0].Legs[1].Waiting)
		assert.Equal(t, 3*time.Hour, its[0].TravelTime)
		assert.Equal(t, 4*time.Hour, its[0].TotalTime)
	})

	t.Run("All combinations ranked by travel time", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		idx := indexOf(
			candidate("a", "X", "Y", t0.Add(time.Hour), 2*time.Hour),
			candidate("b", "X", "Y", t0.Add(2*time.Hour), time.Hour),
			candidate("c", "Y", "Z", t0.Add(4*time.Hour), 3*time.Hour),
			candidate("d", "Y", "Z", t0.Add(5*time.Hour), time.Hour),
		)

		its := Search(stops, idx)
		require.Len(t, its, 4)

		var discovered []string
		for _, it := range its {
			discovered = append(discovered, legIDs(it))
		}
		assert.Equal(t, []string{"a+c", "a+d", "b+c", "b+d"}, discovered)

		ranked := Rank(its, GetCriterion(CriterionTravelTime))
		var order []string
		for i, it := range ranked {
			order = append(order, legIDs(it))
			if i > 0 {
				assert.LessOrEqual(t, ranked[i-1].TravelTime, it.TravelTime)
			}
		}
		assert.Equal(t, []string{"b+d", "a+d", "b+c", "a+c"}, order)
	})
}

func TestSearchEdgeCases(t *testing.T) {
	t.Run("Missing stop-pair yields empty set", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		idx := indexOf(candidate("xy", "X", "Y", t0, time.Hour))

		its := Search(stops, idx)
		assert.NotNil(t, its)
		assert.Empty(t, its)
	})

	t.Run("Pair with only infeasible candidates yields empty set", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		idx := indexOf(
			candidate("xy", "X", "Y", t0.Add(5*time.Hour), time.Hour),
			candidate("yz", "Y", "Z", t0.Add(time.Hour), time.Hour),
		)
		assert.Empty(t, Search(stops, idx))
	})

	t.Run("Departure before trip start is rejected", func(t *testing.T) {
		stops := tripStops("X", "Y")
		idx := indexOf(
			candidate("before", "X", "Y", t0.Add(-time.Minute), time.Hour),
			candidate("on-time", "X", "Y", t0, time.Hour),
		)

		its := Search(stops, idx)
		require.Len(t, its, 1)
		assert.Equal(t, "on-time", legIDs(its[0]))
	})

	t.Run("Intermediate stop floor applies after arrival", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		stops[1].EarliestDeparture = t0.Add(10 * time.Hour)
		idx := indexOf(
			candidate("xy", "X", "Y", t0, time.Hour),
			candidate("too-soon", "Y", "Z", t0.Add(5*time.Hour), time.Hour),
			candidate("ok", "Y", "Z", t0.Add(10*time.Hour), time.Hour),
		)

		its := Search(stops, idx)
		require.Len(t, its, 1)
		assert.Equal(t, "xy+ok", legIDs(its[0]))
		assert.Equal(t, 9*time.Hour, its[0].Legs[1].Waiting)
	})

	t.Run("Zero waiting connection is feasible", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		idx := indexOf(
			candidate("xy", "X", "Y", t0, time.Hour),
			candidate("yz", "Y", "Z", t0.Add(time.Hour), time.Hour),
		)

		its := Search(stops, idx)
		require.Len(t, its, 1)
		assert.Equal(t, time.Duration(0), its[0].Legs[1].Waiting)
		assert.Equal(t, 2*time.Hour, its[0].TotalTime)
	})

	t.Run("Same times with different identity are distinct", func(t *testing.T) {
		stops := tripStops("X", "Y")
		bus := candidate("bus", "X", "Y", t0, time.Hour)
		bus.TransportType = models.TransportBus
		train := candidate("train", "X", "Y", t0, time.Hour)

		its := Search(stops, indexOf(bus, train))
		assert.Len(t, its, 2)
	})

	t.Run("Fewer than two stops yields empty set", func(t *testing.T) {
		assert.Empty(t, Search(tripStops("X"), indexOf()))
		assert.Empty(t, Search(nil, indexOf()))
	})

	t.Run("Candidate index is not modified", func(t *testing.T) {
		stops := tripStops("X", "Y", "Z")
		idx := indexOf(
			candidate("xy", "X", "Y", t0, time.Hour),
			candidate("yz1", "Y", "Z", t0.Add(2*time.Hour), time.Hour),
			candidate("yz2", "Y", "Z", t0.Add(3*time.Hour), time.Hour),
		)
		before := append([]models.LegCandidate(nil), idx.Candidates(models.StopPair{From: "Y", To: "Z"})...)

		Search(stops, idx)
		Search(stops, idx)

		assert.Equal(t, before, idx.Candidates(models.StopPair{From: "Y", To: "Z"}))
	})

	t.Run("Revisited place keeps pairs apart", func(t *testing.T) {
		stops := tripStops("X", "Y", "X")
		idx := indexOf(
			candidate("out", "X", "Y", t0, time.Hour),
			candidate("back", "Y", "X", t0.Add(2*time.Hour), time.Hour),
		)

		its := Search(stops, idx)
		require.Len(t, its, 1)
		assert.Equal(t, "out+back", legIDs(its[0]))
	})
}

// generatedTrip builds a four stop trip with several candidates per pair,
// spread so that some connections are feasible and some are not.
func generatedTrip() ([]models.Stop, *store.CandidateStore) {
	stops := tripStops("A", "B", "C", "D")
	stops[2].EarliestDeparture = t0.Add(6 * time.Hour)

	idx := store.New()
	seed := uint32(7)
	next := func() int {
		seed = seed*1103515245 + 12345
		return int(seed>>16) % 10
	}

	for i := 0; i < len(stops)-1; i++ {
		from, to := stops[i].Code, stops[i+1].Code
		for k := 0; k < 5; k++ {
			dep := t0.Add(time.Duration(i*3+next()-1) * time.Hour)
			dur := time.Duration(next()+1) * 30 * time.Minute
			idx.Add(candidate(fmt.Sprintf("%s%s%d", from, to, k), from, to, dep, dur))
		}
	}
	return stops, idx
}

// bruteForce checks every combination of one candidate per pair
func bruteForce(stops []models.Stop, idx CandidateIndex) []string {
	var out []string
	var walk func(i int, chosen []models.LegCandidate)
	walk = func(i int, chosen []models.LegCandidate) {
		if i == len(stops)-1 {
			ids := make([]string, len(chosen))
			for k, c := range chosen {
				ids[k] = c.ID
			}
			out = append(out, strings.Join(ids, "+"))
			return
		}
		for _, c := range idx.Candidates(models.StopPair{From: stops[i].Code, To: stops[i+1].Code}) {
			if c.DepartureUTC.Before(stops[i].EarliestDeparture) {
				continue
			}
			if i > 0 && c.DepartureUTC.Before(chosen[i-1].ArrivalUTC) {
				continue
			}
			walk(i+1, append(append([]models.LegCandidate(nil), chosen...), c))
		}
	}
	walk(0, nil)
	return out
}

func TestSearchProperties(t *testing.T) {
	stops, idx := generatedTrip()
	its := Search(stops, idx)

	t.Run("Feasibility and accounting hold for every itinerary", func(t *testing.T) {
		for _, it := range its {
			assert.NoError(t, CheckItinerary(stops, it), legIDs(it))
		}
	})

	t.Run("Result equals the feasible cartesian product", func(t *testing.T) {
		want := bruteForce(stops, idx)
		require.NotEmpty(t, want)

		var got []string
		for _, it := range its {
			got = append(got, legIDs(it))
		}
		assert.Equal(t, want, got)
	})

	t.Run("Search is deterministic", func(t *testing.T) {
		assert.Equal(t, its, Search(stops, idx))
	})
}

func TestValidateTrip(t *testing.T) {
	tests := []struct {
		name    string
		stops   []models.Stop
		wantErr bool
	}{
		{
			name:    "Two stops",
			stops:   tripStops("X", "Y"),
			wantErr: false,
		},
		{
			name:    "Single stop",
			stops:   tripStops("X"),
			wantErr: true,
		},
		{
			name:    "No stops",
			stops:   nil,
			wantErr: true,
		},
		{
			name: "Missing departure",
			stops: []models.Stop{
				{Code: "X", EarliestDeparture: t0},
				{Code: "Y"},
			},
			wantErr: true,
		},
		{
			name: "Missing code",
			stops: []models.Stop{
				{Code: "X", EarliestDeparture: t0},
				{Name: "Nowhere", EarliestDeparture: t0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrip(tt.stops)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, models.IsInvalidTrip(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckItinerary(t *testing.T) {
	stops := tripStops("X", "Y", "Z")
	valid := models.Itinerary{
		Legs: []models.LegChoice{
			{LegCandidate: candidate("xy", "X", "Y", t0, time.Hour)},
			{LegCandidate: candidate("yz", "Y", "Z", t0.Add(2*time.Hour), time.Hour), Waiting: time.Hour},
		},
		TravelTime: 2 * time.Hour,
		TotalTime:  3 * time.Hour,
	}

	t.Run("Valid itinerary passes", func(t *testing.T) {
		assert.NoError(t, CheckItinerary(stops, valid))
	})

	t.Run("Wrong total is reported", func(t *testing.T) {
		bad := valid
		bad.TotalTime = 2 * time.Hour
		assert.Error(t, CheckItinerary(stops, bad))
	})

	t.Run("Overlapping legs are reported", func(t *testing.T) {
		bad := valid
		bad.Legs = []models.LegChoice{
			valid.Legs[0],
			{LegCandidate: candidate("yz", "Y", "Z", t0.Add(30*time.Minute), time.Hour)},
		}
		assert.Error(t, CheckItinerary(stops, bad))
	})

	t.Run("Wrong leg count is reported", func(t *testing.T) {
		bad := valid
		bad.Legs = valid.Legs[:1]
		assert.Error(t, CheckItinerary(stops, bad))
	})
}
