package store

import (
	"fmt"
	"sync"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// CandidateStore holds the legs fetched for one trip, grouped by stop-pair.
// It is filled before search starts and only read afterwards.
type CandidateStore struct {
	mu   sync.RWMutex
	legs map[models.StopPair][]models.LegCandidate
}

// New returns an empty store
func New() *CandidateStore {
	return &CandidateStore{
		legs: make(map[models.StopPair][]models.LegCandidate),
	}
}

// Put replaces the candidates of pair
func (s *CandidateStore) Put(pair models.StopPair, legs []models.LegCandidate) error {
	for i, leg := range legs {
		if leg.Pair() != pair {
			return fmt.Errorf("leg %d serves %s, not %s", i, leg.Pair(), pair)
		}
	}

	stored := make([]models.LegCandidate, len(legs))
	copy(stored, legs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.legs[pair] = stored
	return nil
}

// Add appends legs to the pairs they serve
func (s *CandidateStore) Add(legs ...models.LegCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, leg := range legs {
		pair := leg.Pair()
		s.legs[pair] = append(s.legs[pair], leg)
	}
}

// Candidates returns the legs for pair in the order they were stored.
// The returned slice must not be modified.
func (s *CandidateStore) Candidates(pair models.StopPair) []models.LegCandidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.legs[pair]
}
