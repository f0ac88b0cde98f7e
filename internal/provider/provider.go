package provider

import (
	"context"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// PlaceResolver maps a place name to its code in the provider's directory.
// A name missing from the directory is a models.NotFoundError.
type PlaceResolver interface {
	Resolve(ctx context.Context, name string) (models.Place, error)
}

// ScheduleFetcher returns the scheduled legs between two places on the UTC day
// of notBefore. An empty result is not an error; provider failures are
// reported as models.FetchError after the fetcher's own retries.
type ScheduleFetcher interface {
	FetchLegs(ctx context.Context, from, to string, notBefore time.Time) ([]models.LegCandidate, error)
}

// PlaceSearcher lists directory entries whose name starts with query
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, limit int) ([]models.Place, error)
}

// Provider is a complete schedule source
type Provider interface {
	PlaceResolver
	ScheduleFetcher
	PlaceSearcher
}

// FetchObserver receives the outcome of every provider call
type FetchObserver interface {
	ObserveFetch(operation string, d time.Duration, err error)
}
