package store

import (
	"sync"
	"testing"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leg(from, to string, dep time.Time) models.LegCandidate {
	return models.LegCandidate{
		FromCode:     from,
		ToCode:       to,
		DepartureUTC: dep,
		ArrivalUTC:   dep.Add(time.Hour),
		Duration:     time.Hour,
	}
}

func TestCandidateStore(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	xy := models.StopPair{From: "X", To: "Y"}
	yz := models.StopPair{From: "Y", To: "Z"}

	t.Run("Unknown pair has no candidates", func(t *testing.T) {
		s := New()
		assert.Empty(t, s.Candidates(xy))
	})

	t.Run("Put keeps order and copies input", func(t *testing.T) {
		s := New()
		legs := []models.LegCandidate{leg("X", "Y", t0.Add(2*time.Hour)), leg("X", "Y", t0.Add(time.Hour))}
		require.NoError(t, s.Put(xy, legs))

		legs[0].FromCode = "mutated"
		got := s.Candidates(xy)
		require.Len(t, got, 2)
		assert.Equal(t, "X", got[0].FromCode)
		assert.Equal(t, t0.Add(2*time.Hour), got[0].DepartureUTC)
	})

	t.Run("Put rejects legs of another pair", func(t *testing.T) {
		s := New()
		err := s.Put(xy, []models.LegCandidate{leg("Y", "Z", t0)})
		assert.Error(t, err)
		assert.Empty(t, s.Candidates(xy))
	})

	t.Run("Put replaces earlier candidates", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Put(xy, []models.LegCandidate{leg("X", "Y", t0)}))
		require.NoError(t, s.Put(xy, nil))
		assert.Empty(t, s.Candidates(xy))
	})

	t.Run("Add groups by pair", func(t *testing.T) {
		s := New()
		s.Add(leg("X", "Y", t0), leg("Y", "Z", t0), leg("X", "Y", t0.Add(time.Hour)))

		assert.Len(t, s.Candidates(xy), 2)
		assert.Len(t, s.Candidates(yz), 1)
		assert.Equal(t, t0.Add(time.Hour), s.Candidates(xy)[1].DepartureUTC)
	})

	t.Run("Concurrent puts", func(t *testing.T) {
		s := New()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				from := string(rune('A' + i))
				pair := models.StopPair{From: from, To: "Z"}
				assert.NoError(t, s.Put(pair, []models.LegCandidate{leg(from, "Z", t0)}))
			}(i)
		}
		wg.Wait()
		for i := 0; i < 10; i++ {
			from := string(rune('A' + i))
			assert.Len(t, s.Candidates(models.StopPair{From: from, To: "Z"}), 1)
		}
	})
}
