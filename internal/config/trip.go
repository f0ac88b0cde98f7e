package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar date format accepted for stop dates
const DateLayout = "2006-01-02"

// Trip is a trip file: the ordered stops and the ranking criterion
type Trip struct {
	Criterion string     `yaml:"criterion" json:"criterion" validate:"omitempty,oneof=total_time travel_time both none"`
	Stops     []TripStop `yaml:"stops" json:"stops" validate:"min=2,dive"`
}

// TripStop is one stop of a trip file. A stop without a date departs no
// earlier than the previous stop's date.
type TripStop struct {
	City string `yaml:"city" json:"city" validate:"required"`
	Date string `yaml:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// LoadTrip reads and validates a YAML trip file
func LoadTrip(path string) (*Trip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trip file: %w", err)
	}
	return ParseTrip(data)
}

var validate = validator.New()

// ParseTrip decodes and validates a YAML trip document
func ParseTrip(data []byte) (*Trip, error) {
	var trip Trip
	if err := yaml.Unmarshal(data, &trip); err != nil {
		return nil, fmt.Errorf("failed to parse trip file: %w", err)
	}
	if err := trip.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid trip file: %w", err)
	}
	return &trip, nil
}

// Normalize validates the trip and fills defaults. The criterion is matched
// case-insensitively. Missing dates are taken from the previous stop; the
// first stop must carry one.
func (t *Trip) Normalize() error {
	t.Criterion = strings.ToLower(strings.TrimSpace(t.Criterion))
	if err := validate.Struct(t); err != nil {
		return err
	}

	if t.Stops[0].Date == "" {
		return fmt.Errorf("first stop %q has no date", t.Stops[0].City)
	}
	for i := 1; i < len(t.Stops); i++ {
		if t.Stops[i].Date == "" {
			t.Stops[i].Date = t.Stops[i-1].Date
		}
	}

	if t.Criterion == "" {
		t.Criterion = "none"
	}
	return nil
}

// ParseDate parses a stop date as the start of that UTC day
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}
