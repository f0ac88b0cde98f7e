package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/passbi_itinerary/internal/config"
	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/planner"
	"github.com/passbi/passbi_itinerary/internal/routing"
)

// maxExtraStops bounds the waypoints of one interactive session
const maxExtraStops = 50

// prompter asks questions on out and reads one answer per line from in
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *prompter) askDate(question, field string) (time.Time, error) {
	answer, err := p.ask(question)
	if err != nil {
		return time.Time{}, err
	}
	date, err := config.ParseDate(answer)
	if err != nil {
		return time.Time{}, models.InvalidTripError{Field: field, Msg: err.Error()}
	}
	return date, nil
}

// readSession runs the interactive dialogue: origin, destination, first
// date, extra stops with their dates in travel order, then the sort choice.
func readSession(in io.Reader, out io.Writer) (planner.TripRequest, error) {
	p := newPrompter(in, out)

	origin, err := p.ask("Origin city: ")
	if err != nil {
		return planner.TripRequest{}, err
	}
	destination, err := p.ask("Destination city: ")
	if err != nil {
		return planner.TripRequest{}, err
	}
	date, err := p.askDate("Departure date (YYYY-MM-DD): ", "date")
	if err != nil {
		return planner.TripRequest{}, err
	}

	answer, err := p.ask("Number of extra stops: ")
	if err != nil {
		return planner.TripRequest{}, err
	}
	extra, err := strconv.Atoi(answer)
	if err != nil || extra < 0 {
		return planner.TripRequest{}, models.InvalidTripError{Field: "stops", Msg: fmt.Sprintf("invalid number of extra stops %q", answer)}
	}
	if extra > maxExtraStops {
		return planner.TripRequest{}, models.InvalidTripError{Field: "stops", Msg: fmt.Sprintf("at most %d extra stops are supported, got %d", maxExtraStops, extra)}
	}

	waypoints := make([]planner.StopRequest, 0, extra)
	for i := 0; i < extra; i++ {
		name, err := p.ask("Stop city: ")
		if err != nil {
			return planner.TripRequest{}, err
		}
		stopDate, err := p.askDate("Departure date (YYYY-MM-DD): ", fmt.Sprintf("stops[%d].date", i+1))
		if err != nil {
			return planner.TripRequest{}, err
		}
		waypoints = append(waypoints, planner.StopRequest{Name: name, Date: stopDate})
	}

	answer, err = p.ask("Sort itineraries (1 - total time, 2 - travel time, 3 - both): ")
	if err != nil {
		return planner.TripRequest{}, err
	}
	choice, _ := strconv.Atoi(answer)

	return planner.TripRequest{
		Stops:     planner.ExpandStops(origin, destination, date, waypoints),
		Criterion: routing.CriterionFromChoice(choice).Name(),
	}, nil
}
