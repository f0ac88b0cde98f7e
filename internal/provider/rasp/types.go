package rasp

import (
	"fmt"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

type stationsListResponse struct {
	Countries []struct {
		Title   string `json:"title"`
		Regions []struct {
			Title       string `json:"title"`
			Settlements []struct {
				Title string `json:"title"`
				Codes struct {
					YandexCode string `json:"yandex_code"`
				} `json:"codes"`
			} `json:"settlements"`
		} `json:"regions"`
	} `json:"countries"`
}

type searchResponse struct {
	Pagination struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"pagination"`
	Segments []segment `json:"segments"`
}

type segment struct {
	Departure string  `json:"departure"`
	Arrival   string  `json:"arrival"`
	Duration  float64 `json:"duration"` // seconds
	Thread    struct {
		UID           string `json:"uid"`
		Number        string `json:"number"`
		Title         string `json:"title"`
		TransportType string `json:"transport_type"`
	} `json:"thread"`
}

// toLeg converts a segment into a candidate for the requested pair. The
// provider reports times with the local offset of each endpoint.
func (s segment) toLeg(from, to string) (models.LegCandidate, error) {
	dep, err := time.Parse(time.RFC3339, s.Departure)
	if err != nil {
		return models.LegCandidate{}, fmt.Errorf("invalid departure %q: %w", s.Departure, err)
	}
	arr, err := time.Parse(time.RFC3339, s.Arrival)
	if err != nil {
		return models.LegCandidate{}, fmt.Errorf("invalid arrival %q: %w", s.Arrival, err)
	}
	if arr.Before(dep) {
		return models.LegCandidate{}, fmt.Errorf("arrival %s before departure %s", s.Arrival, s.Departure)
	}

	duration := time.Duration(s.Duration * float64(time.Second))
	if duration <= 0 {
		duration = arr.Sub(dep)
	}

	return models.LegCandidate{
		ID:             fmt.Sprintf("%s@%s", s.Thread.UID, dep.UTC().Format(time.RFC3339)),
		FromCode:       from,
		ToCode:         to,
		DepartureUTC:   dep.UTC(),
		ArrivalUTC:     arr.UTC(),
		DepartureLocal: dep,
		ArrivalLocal:   arr,
		Duration:       duration,
		TransportType:  models.TransportType(s.Thread.TransportType),
		ScheduleID:     s.Thread.UID,
		Number:         s.Thread.Number,
		Title:          s.Thread.Title,
	}, nil
}
