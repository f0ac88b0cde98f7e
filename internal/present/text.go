package present

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
)

// TimeLayout formats local departure and arrival times
const TimeLayout = "2006-01-02 15:04"

var separator = strings.Repeat("-", 40)

// Hours renders d in hours with the given number of decimals
func Hours(d time.Duration, precision int) string {
	return strconv.FormatFloat(d.Hours(), 'f', precision, 64)
}

// Text writes ranked itineraries as plain text, resolving place codes
// through dir.
func Text(w io.Writer, itineraries []models.Itinerary, dir models.Directory) error {
	bw := bufio.NewWriter(w)

	if len(itineraries) == 0 {
		fmt.Fprintln(bw, "No itineraries found")
		return bw.Flush()
	}

	fmt.Fprintf(bw, "Found %d itineraries:\n", len(itineraries))
	for i, it := range itineraries {
		fmt.Fprintf(bw, "\nItinerary #%d:\n", i+1)
		fmt.Fprintf(bw, "Total time: %s h\n", Hours(it.TotalTime, 2))
		fmt.Fprintf(bw, "Travel time: %s h\n", Hours(it.TravelTime, 2))
		for _, leg := range it.Legs {
			fmt.Fprintf(bw, "  %s -> %s\n", dir.Name(leg.FromCode), dir.Name(leg.ToCode))
			fmt.Fprintf(bw, "  Transport: %s\n", transportLabel(leg.LegCandidate))
			fmt.Fprintf(bw, "  Local departure: %s\n", leg.DepartureLocal.Format(TimeLayout))
			fmt.Fprintf(bw, "  Local arrival: %s\n", leg.ArrivalLocal.Format(TimeLayout))
			fmt.Fprintf(bw, "  Travel: %s h\n", Hours(leg.Duration, 1))
			fmt.Fprintf(bw, "  Waiting: %s h\n", Hours(leg.Waiting, 1))
			fmt.Fprintln(bw, separator)
		}
	}

	return bw.Flush()
}

// transportLabel is the transport type followed by the route number and
// title when known, e.g. "train 752A Moscow - Saint Petersburg".
func transportLabel(c models.LegCandidate) string {
	parts := []string{string(c.TransportType)}
	if c.Number != "" {
		parts = append(parts, c.Number)
	}
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	return strings.Join(parts, " ")
}
