package gtfs

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// InferTransportType determines the transport type of a GTFS route.
// Keywords in the route names win over route_type; the default is bus.
func InferTransportType(route models.GTFSRoute) models.TransportType {
	routeName := strings.ToUpper(route.ShortName + " " + route.LongName)

	switch {
	case strings.Contains(routeName, "HELI"):
		return models.TransportHelicopter
	case strings.Contains(routeName, "FLIGHT"):
		return models.TransportPlane
	case strings.Contains(routeName, "SUBURBAN") || strings.Contains(routeName, "COMMUTER"):
		return models.TransportSuburban
	case strings.Contains(routeName, "TRAIN") || strings.Contains(routeName, "RAIL"):
		return models.TransportTrain
	case strings.Contains(routeName, "FERRY") || strings.Contains(routeName, "BOAT"):
		return models.TransportWater
	case strings.Contains(routeName, "TRAM"):
		return models.TransportTram
	}

	// https://gtfs.org/schedule/reference/#routestxt plus the extended types
	switch {
	case route.RouteType == 0, route.RouteType == 5, route.RouteType == 7:
		return models.TransportTram
	case route.RouteType == 1, route.RouteType == 109:
		return models.TransportSuburban
	case route.RouteType == 2, route.RouteType >= 100 && route.RouteType < 200:
		return models.TransportTrain
	case route.RouteType == 3, route.RouteType == 11, route.RouteType >= 200 && route.RouteType < 300,
		route.RouteType >= 700 && route.RouteType < 800:
		return models.TransportBus
	case route.RouteType == 4, route.RouteType >= 1000 && route.RouteType < 1100,
		route.RouteType >= 1200 && route.RouteType < 1300:
		return models.TransportWater
	case route.RouteType >= 1100 && route.RouteType < 1200:
		return models.TransportPlane
	case route.RouteType >= 1500 && route.RouteType < 1600:
		return models.TransportHelicopter
	}

	return models.TransportBus
}

// DeduplicateStops merges stops closer than thresholdMeters into the first one
// seen. It returns the kept stops and a mapping from every stop ID to the ID
// that now represents it.
func DeduplicateStops(stops []models.GTFSStop, thresholdMeters float64) ([]models.GTFSStop, map[string]string) {
	stopMapping := make(map[string]string, len(stops))
	if len(stops) == 0 || thresholdMeters <= 0 {
		for _, s := range stops {
			stopMapping[s.StopID] = s.StopID
		}
		return stops, stopMapping
	}

	deduplicated := []models.GTFSStop{}
	skip := make(map[int]bool)

	for i := 0; i < len(stops); i++ {
		if skip[i] {
			continue
		}

		current := stops[i]
		deduplicated = append(deduplicated, current)
		stopMapping[current.StopID] = current.StopID

		for j := i + 1; j < len(stops); j++ {
			if skip[j] {
				continue
			}

			distance := haversineDistance(current.Lat, current.Lon, stops[j].Lat, stops[j].Lon)
			if distance < thresholdMeters {
				skip[j] = true
				stopMapping[stops[j].StopID] = current.StopID
			}
		}
	}

	if removed := len(stops) - len(deduplicated); removed > 0 {
		log.Printf("Deduplicated %d stops to %d (merged %d)", len(stops), len(deduplicated), removed)
	}

	return deduplicated, stopMapping
}

// haversineDistance calculates the distance between two points in meters
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ParseTimeToSeconds converts GTFS time format (H:MM:SS) to seconds since the
// start of the service day. Times past 24:00:00 belong to the next calendar day.
func ParseTimeToSeconds(timeStr string) (int, error) {
	if timeStr == "" {
		return 0, fmt.Errorf("empty time string")
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}

	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time format: %s", timeStr)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}

	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

// timedStop is a stop_time with its times resolved to seconds
type timedStop struct {
	StopID    string
	Sequence  int
	Arrival   int
	Departure int
}

// InterpolateStopTimes resolves the times of one trip's stop_times, already
// ordered by sequence. Stops between two timed stops get linearly interpolated
// times; stops before the first or after the last timed stop are dropped.
// A trip with fewer than two timed stops yields nothing.
func InterpolateStopTimes(times []models.GTFSStopTime) []timedStop {
	resolved := make([]timedStop, len(times))
	var anchors []int

	for i, st := range times {
		resolved[i] = timedStop{StopID: st.StopID, Sequence: st.StopSequence}

		arr, errArr := ParseTimeToSeconds(st.ArrivalTime)
		dep, errDep := ParseTimeToSeconds(st.DepartureTime)
		switch {
		case errArr == nil && errDep == nil:
		case errArr == nil:
			dep = arr
		case errDep == nil:
			arr = dep
		default:
			continue
		}
		resolved[i].Arrival, resolved[i].Departure = arr, dep
		anchors = append(anchors, i)
	}

	if len(anchors) < 2 {
		return nil
	}

	first, last := anchors[0], anchors[len(anchors)-1]
	for a := 0; a+1 < len(anchors); a++ {
		lo, hi := anchors[a], anchors[a+1]
		span := resolved[hi].Arrival - resolved[lo].Departure
		for i := lo + 1; i < hi; i++ {
			t := resolved[lo].Departure + span*(i-lo)/(hi-lo)
			resolved[i].Arrival, resolved[i].Departure = t, t
		}
	}

	return resolved[first : last+1]
}

// ValidateAndCleanStops removes stops with invalid coordinates
func ValidateAndCleanStops(stops []models.GTFSStop) []models.GTFSStop {
	cleaned := []models.GTFSStop{}

	for _, stop := range stops {
		if stop.Lat < -90 || stop.Lat > 90 {
			log.Printf("Warning: invalid latitude for stop %s: %f", stop.StopID, stop.Lat)
			continue
		}
		if stop.Lon < -180 || stop.Lon > 180 {
			log.Printf("Warning: invalid longitude for stop %s: %f", stop.StopID, stop.Lon)
			continue
		}
		if stop.Lat == 0 && stop.Lon == 0 {
			log.Printf("Warning: stop %s has null island coordinates, skipping", stop.StopID)
			continue
		}

		cleaned = append(cleaned, stop)
	}

	if len(cleaned) < len(stops) {
		log.Printf("Cleaned stops: removed %d invalid stops", len(stops)-len(cleaned))
	}

	return cleaned
}
