package routing

import (
	"cmp"
	"strings"

	"github.com/passbi/passbi_itinerary/internal/models"
)

const (
	CriterionTotalTime  = "total_time"
	CriterionTravelTime = "travel_time"
	CriterionBoth       = "both"
	CriterionNone       = "none"
)

// Criterion defines how complete itineraries are ordered.
// Compare follows the cmp.Compare convention.
type Criterion interface {
	Name() string
	Compare(a, b models.Itinerary) int
}

// TotalTimeCriterion orders by elapsed time, waiting included
type TotalTimeCriterion struct{}

func (c *TotalTimeCriterion) Name() string {
	return CriterionTotalTime
}

func (c *TotalTimeCriterion) Compare(a, b models.Itinerary) int {
	return cmp.Compare(a.TotalTime, b.TotalTime)
}

// TravelTimeCriterion orders by time spent moving
type TravelTimeCriterion struct{}

func (c *TravelTimeCriterion) Name() string {
	return CriterionTravelTime
}

func (c *TravelTimeCriterion) Compare(a, b models.Itinerary) int {
	return cmp.Compare(a.TravelTime, b.TravelTime)
}

// BothCriterion orders by travel time, ties broken by total time
type BothCriterion struct{}

func (c *BothCriterion) Name() string {
	return CriterionBoth
}

func (c *BothCriterion) Compare(a, b models.Itinerary) int {
	if r := cmp.Compare(a.TravelTime, b.TravelTime); r != 0 {
		return r
	}
	return cmp.Compare(a.TotalTime, b.TotalTime)
}

// DiscoveryOrder keeps itineraries in the order search found them
type DiscoveryOrder struct{}

func (c *DiscoveryOrder) Name() string {
	return CriterionNone
}

func (c *DiscoveryOrder) Compare(a, b models.Itinerary) int {
	return 0
}

// GetCriterion returns a criterion by name, discovery order when unknown
func GetCriterion(name string) Criterion {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CriterionTotalTime:
		return &TotalTimeCriterion{}
	case CriterionTravelTime:
		return &TravelTimeCriterion{}
	case CriterionBoth:
		return &BothCriterion{}
	default:
		return &DiscoveryOrder{}
	}
}

// CriterionFromChoice maps the interactive menu (1 total, 2 travel, 3 both)
// to a criterion. Any other number keeps discovery order.
func CriterionFromChoice(choice int) Criterion {
	switch choice {
	case 1:
		return &TotalTimeCriterion{}
	case 2:
		return &TravelTimeCriterion{}
	case 3:
		return &BothCriterion{}
	default:
		return &DiscoveryOrder{}
	}
}

// GetAllCriteria returns all available criteria
func GetAllCriteria() []Criterion {
	return []Criterion{
		&TotalTimeCriterion{},
		&TravelTimeCriterion{},
		&BothCriterion{},
		&DiscoveryOrder{},
	}
}
