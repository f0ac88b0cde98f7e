package models

import (
	"fmt"
	"time"
)

// TransportType represents the kind of vehicle serving a leg
type TransportType string

const (
	TransportPlane      TransportType = "plane"
	TransportTrain      TransportType = "train"
	TransportSuburban   TransportType = "suburban"
	TransportBus        TransportType = "bus"
	TransportWater      TransportType = "water"
	TransportHelicopter TransportType = "helicopter"
	TransportTram       TransportType = "tram"
)

// Place is a resolved entry of the provider's place directory
type Place struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Stop is one position of a trip. EarliestDeparture is a hard floor for the
// leg leaving this stop, independent of when the previous leg arrives.
type Stop struct {
	Name              string    `json:"name"`
	Code              string    `json:"code"`
	EarliestDeparture time.Time `json:"earliest_departure"`
}

// StopPair keys the candidate legs for one position of the trip
type StopPair struct {
	From string
	To   string
}

func (p StopPair) String() string {
	return fmt.Sprintf("%s->%s", p.From, p.To)
}

// LegCandidate is a scheduled transport segment between two places.
// Feasibility is always decided on the UTC instants; the local values are
// kept for display only.
type LegCandidate struct {
	ID             string        `json:"id,omitempty"`
	FromCode       string        `json:"from_code"`
	ToCode         string        `json:"to_code"`
	DepartureUTC   time.Time     `json:"departure_utc"`
	ArrivalUTC     time.Time     `json:"arrival_utc"`
	DepartureLocal time.Time     `json:"departure_local"`
	ArrivalLocal   time.Time     `json:"arrival_local"`
	Duration       time.Duration `json:"duration"`
	TransportType  TransportType `json:"transport_type"`
	ScheduleID     string        `json:"schedule_id,omitempty"`
	Number         string        `json:"number,omitempty"`
	Title          string        `json:"title,omitempty"`
}

// Pair returns the stop-pair this candidate serves
func (c LegCandidate) Pair() StopPair {
	return StopPair{From: c.FromCode, To: c.ToCode}
}

// LegChoice is a candidate selected into an itinerary
type LegChoice struct {
	LegCandidate
	Waiting time.Duration `json:"waiting"`
}

// Itinerary is a complete, time-feasible sequence of legs
type Itinerary struct {
	Legs       []LegChoice   `json:"legs"`
	TotalTime  time.Duration `json:"total_time"`
	TravelTime time.Duration `json:"travel_time"`
}

// Directory maps place codes to display names
type Directory map[string]string

// Name returns the display name for code, falling back to a generic label
func (d Directory) Name(code string) string {
	if name, ok := d[code]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("place %s", code)
}

// GTFS data structures for import

// GTFSAgency represents an agency from agency.txt
type GTFSAgency struct {
	AgencyID   string
	AgencyName string
	AgencyURL  string
	Timezone   string
}

// GTFSStop represents a stop from stops.txt
type GTFSStop struct {
	StopID   string
	StopName string
	Lat      float64
	Lon      float64
}

// GTFSRoute represents a route from routes.txt
type GTFSRoute struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	RouteType int
}

// GTFSTrip represents a trip from trips.txt
type GTFSTrip struct {
	RouteID   string
	ServiceID string
	TripID    string
	Headsign  string
}

// GTFSStopTime represents a stop time from stop_times.txt
type GTFSStopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// GTFSCalendar represents a weekly service pattern from calendar.txt
type GTFSCalendar struct {
	ServiceID string
	Weekdays  [7]bool // indexed by time.Weekday
	StartDate time.Time
	EndDate   time.Time
}

// GTFSCalendarDate represents a service exception from calendar_dates.txt
type GTFSCalendarDate struct {
	ServiceID     string
	Date          time.Time
	ExceptionType int // 1 added, 2 removed
}
