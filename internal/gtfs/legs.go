package gtfs

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// ServiceCalendar answers whether a GTFS service runs on a given day
type ServiceCalendar struct {
	weekly     map[string]models.GTFSCalendar
	exceptions map[string]map[string]int
}

// NewServiceCalendar indexes calendar.txt and calendar_dates.txt rows
func NewServiceCalendar(calendars []models.GTFSCalendar, dates []models.GTFSCalendarDate) *ServiceCalendar {
	c := &ServiceCalendar{
		weekly:     make(map[string]models.GTFSCalendar, len(calendars)),
		exceptions: make(map[string]map[string]int),
	}
	for _, cal := range calendars {
		c.weekly[cal.ServiceID] = cal
	}
	for _, d := range dates {
		if c.exceptions[d.ServiceID] == nil {
			c.exceptions[d.ServiceID] = make(map[string]int)
		}
		c.exceptions[d.ServiceID][d.Date.Format("20060102")] = d.ExceptionType
	}
	return c
}

// Active reports whether serviceID runs on the calendar day of day.
// A calendar_dates exception overrides the weekly pattern.
func (c *ServiceCalendar) Active(serviceID string, day time.Time) bool {
	key := day.Format("20060102")
	if ex, ok := c.exceptions[serviceID][key]; ok {
		return ex == 1
	}

	cal, ok := c.weekly[serviceID]
	if !ok {
		return false
	}
	if key < cal.StartDate.Format("20060102") || key > cal.EndDate.Format("20060102") {
		return false
	}
	return cal.Weekdays[day.Weekday()]
}

// BuildOptions controls leg generation
type BuildOptions struct {
	// Location is the timezone of the feed's clock times; the agency timezone
	// is used when nil.
	Location *time.Location
	// From is the first service day. Only its calendar date is used.
	From time.Time
	// Days is the number of service days to expand, at least one.
	Days int
	// StopMapping replaces stop IDs, typically the result of DeduplicateStops.
	// When set, stops missing from it are dropped from every trip.
	StopMapping map[string]string
}

// Leg is a leg candidate together with the service day it was generated for
type Leg struct {
	models.LegCandidate
	ServiceDate time.Time
}

// BuildLegs expands every active trip of the window into leg candidates, one
// per ordered pair of stops (i < j) along the trip. Pairs collapsing onto the
// same place after StopMapping are skipped.
func BuildLegs(feed *Feed, opts BuildOptions) []Leg {
	loc := opts.Location
	if loc == nil {
		loc = feed.Timezone()
	}
	days := opts.Days
	if days < 1 {
		days = 1
	}

	routes := make(map[string]models.GTFSRoute, len(feed.Routes))
	for _, r := range feed.Routes {
		routes[r.RouteID] = r
	}

	byTrip := make(map[string][]models.GTFSStopTime)
	for _, st := range feed.StopTimes {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}

	calendar := NewServiceCalendar(feed.Calendars, feed.CalendarDates)
	start := time.Date(opts.From.Year(), opts.From.Month(), opts.From.Day(), 0, 0, 0, 0, loc)

	var legs []Leg
	for _, trip := range feed.Trips {
		times := byTrip[trip.TripID]
		sort.Slice(times, func(a, b int) bool { return times[a].StopSequence < times[b].StopSequence })

		stops := mapStops(InterpolateStopTimes(times), opts.StopMapping)
		if len(stops) < 2 {
			continue
		}

		route := routes[trip.RouteID]
		transport := InferTransportType(route)
		title := trip.Headsign
		if title == "" {
			title = route.LongName
		}

		for d := 0; d < days; d++ {
			serviceDay := start.AddDate(0, 0, d)
			if !calendar.Active(trip.ServiceID, serviceDay) {
				continue
			}
			legs = append(legs, tripLegs(trip, stops, serviceDay, models.LegCandidate{
				TransportType: transport,
				ScheduleID:    trip.TripID,
				Number:        route.ShortName,
				Title:         title,
			})...)
		}
	}

	log.Printf("Built %d legs from %d trips over %d days", len(legs), len(feed.Trips), days)
	return legs
}

func mapStops(stops []timedStop, mapping map[string]string) []timedStop {
	if mapping == nil {
		return stops
	}
	kept := stops[:0]
	for _, s := range stops {
		mapped, ok := mapping[s.StopID]
		if !ok {
			continue
		}
		s.StopID = mapped
		kept = append(kept, s)
	}
	return kept
}

func tripLegs(trip models.GTFSTrip, stops []timedStop, serviceDay time.Time, base models.LegCandidate) []Leg {
	// GTFS clock times count from noon minus twelve hours, which differs from
	// midnight on daylight saving transition days.
	origin := time.Date(serviceDay.Year(), serviceDay.Month(), serviceDay.Day(), 12, 0, 0, 0, serviceDay.Location()).
		Add(-12 * time.Hour)

	date := time.Date(serviceDay.Year(), serviceDay.Month(), serviceDay.Day(), 0, 0, 0, 0, time.UTC)

	var legs []Leg
	for i := 0; i < len(stops)-1; i++ {
		for j := i + 1; j < len(stops); j++ {
			from, to := stops[i], stops[j]
			if from.StopID == to.StopID || to.Arrival < from.Departure {
				continue
			}

			dep := origin.Add(time.Duration(from.Departure) * time.Second)
			arr := origin.Add(time.Duration(to.Arrival) * time.Second)

			leg := base
			leg.ID = fmt.Sprintf("%s:%s:%d:%d", serviceDay.Format("20060102"), trip.TripID, from.Sequence, to.Sequence)
			leg.FromCode = from.StopID
			leg.ToCode = to.StopID
			leg.DepartureLocal = dep
			leg.ArrivalLocal = arr
			leg.DepartureUTC = dep.UTC()
			leg.ArrivalUTC = arr.UTC()
			leg.Duration = arr.Sub(dep)
			legs = append(legs, Leg{LegCandidate: leg, ServiceDate: date})
		}
	}
	return legs
}
