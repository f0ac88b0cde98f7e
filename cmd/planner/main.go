package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/passbi/passbi_itinerary/internal/config"
	"github.com/passbi/passbi_itinerary/internal/db"
	"github.com/passbi/passbi_itinerary/internal/planner"
	"github.com/passbi/passbi_itinerary/internal/present"
	"github.com/passbi/passbi_itinerary/internal/provider"
	"github.com/passbi/passbi_itinerary/internal/provider/rasp"
	"github.com/passbi/passbi_itinerary/internal/provider/timetable"
)

func main() {
	tripPath := flag.String("trip", "", "Trip file (YAML); prompts interactively when empty")
	format := flag.String("format", "text", "Output format: text or pdf")
	outPath := flag.String("out", "", "Output file (defaults to stdout for text, itineraries.pdf for pdf)")
	fontPath := flag.String("font", "", "TTF font for PDF output with non-Latin place names")

	flag.Parse()

	*format = strings.ToLower(*format)
	if *format != "text" && *format != "pdf" {
		fmt.Println("Usage: itinerary-plan [--trip=trip.yml] [--format=text|pdf] [--out=<path>] [--font=<path.ttf>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*tripPath, *format, *outPath, *fontPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(tripPath, format, outPath, fontPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var req planner.TripRequest
	if tripPath != "" {
		trip, err := config.LoadTrip(tripPath)
		if err != nil {
			return err
		}
		if req, err = planner.RequestFromTrip(trip); err != nil {
			return err
		}
	} else {
		if req, err = readSession(os.Stdin, os.Stdout); err != nil {
			return err
		}
	}

	source, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := planner.New(source, planner.WithConcurrency(cfg.FetchConcurrency)).Plan(ctx, req)
	if err != nil {
		return err
	}

	out, name, closeOut, err := output(format, outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	if format == "pdf" {
		title := make([]string, 0, len(plan.Stops))
		for _, s := range plan.Stops {
			title = append(title, plan.Directory.Name(s.Code))
		}
		if err := present.PDF(out, plan.Itineraries, plan.Directory, present.PDFOptions{
			Title:    strings.Join(title, " - "),
			FontPath: fontPath,
		}); err != nil {
			return err
		}
		log.Printf("Wrote %d itineraries to %s", len(plan.Itineraries), name)
		return nil
	}

	return present.Text(out, plan.Itineraries, plan.Directory)
}

func output(format, path string) (io.Writer, string, func(), error) {
	if path == "" && format == "text" {
		return os.Stdout, "stdout", func() {}, nil
	}
	if path == "" {
		path = "itineraries.pdf"
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, path, func() { f.Close() }, nil
}

func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderPostgres:
		pool, err := db.GetDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return timetable.New(pool, nil), nil
	default:
		return rasp.New(rasp.Config{
			BaseURL: cfg.RaspBaseURL,
			APIKey:  cfg.RaspAPIKey,
			Lang:    cfg.RaspLang,
			Timeout: cfg.HTTPTimeout,
		}), nil
	}
}
