package routing

import (
	"slices"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// Rank returns a stably sorted copy of its. Nothing is dropped; a nil
// criterion or DiscoveryOrder returns the input order.
func Rank(its []models.Itinerary, c Criterion) []models.Itinerary {
	out := make([]models.Itinerary, len(its))
	copy(out, its)

	if c == nil {
		return out
	}
	if _, ok := c.(*DiscoveryOrder); ok {
		return out
	}

	slices.SortStableFunc(out, c.Compare)
	return out
}
