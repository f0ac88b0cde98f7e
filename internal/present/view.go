package present

import (
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// LegView is the JSON shape of one leg
type LegView struct {
	FromCode        string               `json:"from_code"`
	FromName        string               `json:"from_name"`
	ToCode          string               `json:"to_code"`
	ToName          string               `json:"to_name"`
	TransportType   models.TransportType `json:"transport_type"`
	Number          string               `json:"number,omitempty"`
	Title           string               `json:"title,omitempty"`
	DepartureUTC    time.Time            `json:"departure_utc"`
	ArrivalUTC      time.Time            `json:"arrival_utc"`
	DepartureLocal  string               `json:"departure_local"`
	ArrivalLocal    string               `json:"arrival_local"`
	DurationSeconds int64                `json:"duration_seconds"`
	WaitingSeconds  int64                `json:"waiting_seconds"`
}

// ItineraryView is the JSON shape of one itinerary
type ItineraryView struct {
	TotalSeconds  int64     `json:"total_seconds"`
	TravelSeconds int64     `json:"travel_seconds"`
	TotalHours    string    `json:"total_hours"`
	TravelHours   string    `json:"travel_hours"`
	Legs          []LegView `json:"legs"`
}

// Views converts itineraries for JSON output. Local times keep their UTC
// offset so clients can show them without a timezone database.
func Views(itineraries []models.Itinerary, dir models.Directory) []ItineraryView {
	views := make([]ItineraryView, 0, len(itineraries))
	for _, it := range itineraries {
		v := ItineraryView{
			TotalSeconds:  int64(it.TotalTime.Seconds()),
			TravelSeconds: int64(it.TravelTime.Seconds()),
			TotalHours:    Hours(it.TotalTime, 2),
			TravelHours:   Hours(it.TravelTime, 2),
			Legs:          make([]LegView, 0, len(it.Legs)),
		}
		for _, leg := range it.Legs {
			v.Legs = append(v.Legs, LegView{
				FromCode:        leg.FromCode,
				FromName:        dir.Name(leg.FromCode),
				ToCode:          leg.ToCode,
				ToName:          dir.Name(leg.ToCode),
				TransportType:   leg.TransportType,
				Number:          leg.Number,
				Title:           leg.Title,
				DepartureUTC:    leg.DepartureUTC,
				ArrivalUTC:      leg.ArrivalUTC,
				DepartureLocal:  leg.DepartureLocal.Format(time.RFC3339),
				ArrivalLocal:    leg.ArrivalLocal.Format(time.RFC3339),
				DurationSeconds: int64(leg.Duration.Seconds()),
				WaitingSeconds:  int64(leg.Waiting.Seconds()),
			})
		}
		views = append(views, v)
	}
	return views
}
