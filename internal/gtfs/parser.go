package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// Feed represents a parsed GTFS timetable
type Feed struct {
	Agencies      []models.GTFSAgency
	Stops         []models.GTFSStop
	Routes        []models.GTFSRoute
	Trips         []models.GTFSTrip
	StopTimes     []models.GTFSStopTime
	Calendars     []models.GTFSCalendar
	CalendarDates []models.GTFSCalendarDate
}

// Timezone returns the first agency timezone, UTC when none is usable
func (f *Feed) Timezone() *time.Location {
	for _, a := range f.Agencies {
		if a.Timezone == "" {
			continue
		}
		loc, err := time.LoadLocation(a.Timezone)
		if err != nil {
			log.Printf("Warning: unknown agency timezone %q: %v", a.Timezone, err)
			continue
		}
		return loc
	}
	return time.UTC
}

type feedFile struct {
	name     string
	required bool
	parse    func(io.Reader, *Feed) error
}

var feedFiles = []feedFile{
	{"agency.txt", false, func(r io.Reader, f *Feed) (err error) { f.Agencies, err = ParseAgencies(r); return }},
	{"stops.txt", true, func(r io.Reader, f *Feed) (err error) { f.Stops, err = ParseStops(r); return }},
	{"routes.txt", true, func(r io.Reader, f *Feed) (err error) { f.Routes, err = ParseRoutes(r); return }},
	{"trips.txt", true, func(r io.Reader, f *Feed) (err error) { f.Trips, err = ParseTrips(r); return }},
	{"stop_times.txt", true, func(r io.Reader, f *Feed) (err error) { f.StopTimes, err = ParseStopTimes(r); return }},
	{"calendar.txt", false, func(r io.Reader, f *Feed) (err error) { f.Calendars, err = ParseCalendars(r); return }},
	{"calendar_dates.txt", false, func(r io.Reader, f *Feed) (err error) { f.CalendarDates, err = ParseCalendarDates(r); return }},
}

// ParseZip parses a GTFS ZIP file. Files may sit in a sub-directory of the
// archive.
func ParseZip(zipPath string) (*Feed, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	entries := make(map[string]*zip.File)
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		entries[path.Base(file.Name)] = file
	}

	feed := &Feed{}
	for _, ff := range feedFiles {
		entry, ok := entries[ff.name]
		if !ok {
			if ff.required {
				return nil, fmt.Errorf("missing required file %s", ff.name)
			}
			log.Printf("Warning: %s not present in feed", ff.name)
			continue
		}

		if err := parseEntry(entry, feed, ff.parse); err != nil {
			if ff.required {
				return nil, fmt.Errorf("failed to parse %s (required): %w", ff.name, err)
			}
			log.Printf("Warning: failed to parse %s: %v", ff.name, err)
		}
	}

	log.Printf("Parsed %d stops, %d routes, %d trips, %d stop_times, %d calendars, %d calendar_dates",
		len(feed.Stops), len(feed.Routes), len(feed.Trips), len(feed.StopTimes),
		len(feed.Calendars), len(feed.CalendarDates))

	return feed, nil
}

func parseEntry(entry *zip.File, feed *Feed, parse func(io.Reader, *Feed) error) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return parse(rc, feed)
}

// ParseAgencies parses agency.txt
func ParseAgencies(reader io.Reader) ([]models.GTFSAgency, error) {
	var agencies []models.GTFSAgency
	err := forEachRow(reader, "agency", func(row row) {
		agencies = append(agencies, models.GTFSAgency{
			AgencyID:   row.get("agency_id"),
			AgencyName: row.get("agency_name"),
			AgencyURL:  row.get("agency_url"),
			Timezone:   row.get("agency_timezone"),
		})
	})
	return agencies, err
}

// ParseStops parses stops.txt. Stops without coordinates are kept with zero
// coordinates; ValidateAndCleanStops decides what to drop.
func ParseStops(reader io.Reader) ([]models.GTFSStop, error) {
	var stops []models.GTFSStop
	err := forEachRow(reader, "stop", func(row row) {
		stopID := row.get("stop_id")
		if stopID == "" {
			log.Printf("Warning: skipping stop with missing stop_id")
			return
		}

		lat, err := strconv.ParseFloat(row.get("stop_lat"), 64)
		if err != nil {
			log.Printf("Warning: invalid latitude for stop %s: %v", stopID, err)
			return
		}
		lon, err := strconv.ParseFloat(row.get("stop_lon"), 64)
		if err != nil {
			log.Printf("Warning: invalid longitude for stop %s: %v", stopID, err)
			return
		}

		stops = append(stops, models.GTFSStop{
			StopID:   stopID,
			StopName: row.get("stop_name"),
			Lat:      lat,
			Lon:      lon,
		})
	})
	return stops, err
}

// ParseRoutes parses routes.txt
func ParseRoutes(reader io.Reader) ([]models.GTFSRoute, error) {
	var routes []models.GTFSRoute
	err := forEachRow(reader, "route", func(row row) {
		routeID := row.get("route_id")
		if routeID == "" {
			return
		}
		routeType, _ := strconv.Atoi(row.get("route_type"))

		routes = append(routes, models.GTFSRoute{
			RouteID:   routeID,
			AgencyID:  row.get("agency_id"),
			ShortName: row.get("route_short_name"),
			LongName:  row.get("route_long_name"),
			RouteType: routeType,
		})
	})
	return routes, err
}

// ParseTrips parses trips.txt
func ParseTrips(reader io.Reader) ([]models.GTFSTrip, error) {
	var trips []models.GTFSTrip
	err := forEachRow(reader, "trip", func(row row) {
		tripID := row.get("trip_id")
		routeID := row.get("route_id")
		if tripID == "" || routeID == "" {
			return
		}

		trips = append(trips, models.GTFSTrip{
			RouteID:   routeID,
			ServiceID: row.get("service_id"),
			TripID:    tripID,
			Headsign:  row.get("trip_headsign"),
		})
	})
	return trips, err
}

// ParseStopTimes parses stop_times.txt
func ParseStopTimes(reader io.Reader) ([]models.GTFSStopTime, error) {
	var stopTimes []models.GTFSStopTime
	err := forEachRow(reader, "stop_time", func(row row) {
		tripID := row.get("trip_id")
		stopID := row.get("stop_id")
		seqStr := row.get("stop_sequence")
		if tripID == "" || stopID == "" || seqStr == "" {
			return
		}

		sequence, err := strconv.Atoi(seqStr)
		if err != nil {
			log.Printf("Warning: invalid sequence for trip %s: %v", tripID, err)
			return
		}

		stopTimes = append(stopTimes, models.GTFSStopTime{
			TripID:        tripID,
			ArrivalTime:   row.get("arrival_time"),
			DepartureTime: row.get("departure_time"),
			StopID:        stopID,
			StopSequence:  sequence,
		})
	})
	return stopTimes, err
}

// ParseCalendars parses calendar.txt
func ParseCalendars(reader io.Reader) ([]models.GTFSCalendar, error) {
	days := []struct {
		column  string
		weekday time.Weekday
	}{
		{"sunday", time.Sunday}, {"monday", time.Monday}, {"tuesday", time.Tuesday},
		{"wednesday", time.Wednesday}, {"thursday", time.Thursday}, {"friday", time.Friday},
		{"saturday", time.Saturday},
	}

	var calendars []models.GTFSCalendar
	err := forEachRow(reader, "calendar", func(row row) {
		serviceID := row.get("service_id")
		start, errStart := ParseDate(row.get("start_date"))
		end, errEnd := ParseDate(row.get("end_date"))
		if serviceID == "" || errStart != nil || errEnd != nil {
			log.Printf("Warning: skipping calendar row for service %q", serviceID)
			return
		}

		cal := models.GTFSCalendar{ServiceID: serviceID, StartDate: start, EndDate: end}
		for _, d := range days {
			cal.Weekdays[d.weekday] = row.get(d.column) == "1"
		}
		calendars = append(calendars, cal)
	})
	return calendars, err
}

// ParseCalendarDates parses calendar_dates.txt
func ParseCalendarDates(reader io.Reader) ([]models.GTFSCalendarDate, error) {
	var dates []models.GTFSCalendarDate
	err := forEachRow(reader, "calendar_date", func(row row) {
		serviceID := row.get("service_id")
		date, err := ParseDate(row.get("date"))
		if serviceID == "" || err != nil {
			log.Printf("Warning: skipping calendar_date row for service %q", serviceID)
			return
		}
		exception, _ := strconv.Atoi(row.get("exception_type"))

		dates = append(dates, models.GTFSCalendarDate{
			ServiceID:     serviceID,
			Date:          date,
			ExceptionType: exception,
		})
	})
	return dates, err
}

// ParseDate parses a GTFS YYYYMMDD date as a UTC calendar day
func ParseDate(s string) (time.Time, error) {
	return time.Parse("20060102", s)
}

// Helper functions

type row struct {
	record []string
	colMap map[string]int
}

func (r row) get(fieldName string) string {
	if idx, ok := r.colMap[fieldName]; ok && idx < len(r.record) {
		return strings.TrimSpace(r.record[idx])
	}
	return ""
}

// forEachRow reads a CSV file with a header row. Malformed rows are logged and
// skipped; only an unreadable header is an error.
func forEachRow(reader io.Reader, kind string, fn func(row)) error {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		// Some exporters prepend a UTF-8 byte order mark
		colMap[strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")] = i
	}

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			log.Printf("Warning: skipping malformed %s row: %v", kind, err)
			continue
		}
		fn(row{record: record, colMap: colMap})
	}
}
