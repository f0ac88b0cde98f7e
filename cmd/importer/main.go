package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/passbi_itinerary/internal/config"
	"github.com/passbi/passbi_itinerary/internal/db"
	"github.com/passbi/passbi_itinerary/internal/gtfs"
	"github.com/passbi/passbi_itinerary/internal/models"
)

type importOptions struct {
	feedID          string
	gtfsPath        string
	from            time.Time
	days            int
	timezone        string
	dedupeThreshold float64
}

func main() {
	// Command-line flags
	feedID := flag.String("feed", "", "Feed ID used to namespace places and legs (required)")
	gtfsPath := flag.String("gtfs", "", "Path to GTFS ZIP file (required)")
	from := flag.String("from", time.Now().UTC().Format(config.DateLayout), "First service day to generate (YYYY-MM-DD)")
	days := flag.Int("days", 7, "Number of service days to generate")
	tz := flag.String("tz", "", "Feed time zone (defaults to the agency time zone)")
	dedupeThreshold := flag.Float64("dedupe-threshold", 30.0, "Stop deduplication threshold in meters")

	flag.Parse()

	// Validate required flags
	if *feedID == "" || *gtfsPath == "" || *days < 1 {
		fmt.Println("Usage: itinerary-import --feed=<id> --gtfs=<path.zip> [--from=YYYY-MM-DD] [--days=7] [--tz=Europe/Moscow] [--dedupe-threshold=30]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fromDay, err := config.ParseDate(*from)
	if err != nil {
		log.Fatalf("Invalid --from date: %v", err)
	}

	// Validate file exists
	if _, err := os.Stat(*gtfsPath); os.IsNotExist(err) {
		log.Fatalf("GTFS file not found: %s", *gtfsPath)
	}

	log.Println("Starting GTFS import...")
	log.Printf("Feed ID: %s", *feedID)
	log.Printf("GTFS file: %s", *gtfsPath)
	log.Printf("Service days: %s + %d", fromDay.Format(config.DateLayout), *days)

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	// Create import log entry
	importLogID, err := createImportLog(ctx, pool, *feedID)
	if err != nil {
		log.Fatalf("Failed to create import log: %v", err)
	}

	opts := importOptions{
		feedID:          *feedID,
		gtfsPath:        *gtfsPath,
		from:            fromDay,
		days:            *days,
		timezone:        *tz,
		dedupeThreshold: *dedupeThreshold,
	}
	if err := runImport(ctx, pool, opts, importLogID); err != nil {
		updateImportLog(ctx, pool, importLogID, "failed", err.Error())
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import completed successfully!")
}

func runImport(ctx context.Context, pool *pgxpool.Pool, opts importOptions, logID int64) error {
	startTime := time.Now()

	log.Println("Step 1/5: Parsing GTFS feed...")
	feed, err := gtfs.ParseZip(opts.gtfsPath)
	if err != nil {
		return fmt.Errorf("failed to parse GTFS: %w", err)
	}

	loc := feed.Timezone()
	if opts.timezone != "" {
		if loc, err = time.LoadLocation(opts.timezone); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", opts.timezone, err)
		}
	}
	log.Printf("Feed time zone: %s", loc)

	log.Println("Step 2/5: Validating and cleaning stops...")
	feed.Stops = gtfs.ValidateAndCleanStops(feed.Stops)

	log.Println("Step 3/5: Deduplicating stops...")
	var stopMapping map[string]string
	feed.Stops, stopMapping = gtfs.DeduplicateStops(feed.Stops, opts.dedupeThreshold)
	for id, kept := range stopMapping {
		stopMapping[id] = placeCode(opts.feedID, kept)
	}

	log.Println("Step 4/5: Generating legs...")
	legs := gtfs.BuildLegs(feed, gtfs.BuildOptions{
		Location:    loc,
		From:        opts.from,
		Days:        opts.days,
		StopMapping: stopMapping,
	})
	log.Printf("Generated %d legs from %d trips", len(legs), len(feed.Trips))

	log.Println("Step 5/5: Writing places and legs to database...")
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := importPlaces(ctx, tx, opts.feedID, loc, feed.Stops); err != nil {
		return fmt.Errorf("failed to import places: %w", err)
	}

	if err := importLegs(ctx, tx, opts, legs); err != nil {
		return fmt.Errorf("failed to import legs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	duration := time.Since(startTime)
	log.Printf("Import completed in %s", duration)

	return updateImportLog(ctx, pool, logID, "success",
		fmt.Sprintf("Imported %d places, %d legs for %d days", len(feed.Stops), len(legs), opts.days))
}

func placeCode(feedID, stopID string) string {
	return feedID + ":" + stopID
}

func createImportLog(ctx context.Context, pool *pgxpool.Pool, feedID string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO import_log (feed, status)
		VALUES ($1, 'running')
		RETURNING id
	`, feedID).Scan(&id)

	return id, err
}

func updateImportLog(ctx context.Context, pool *pgxpool.Pool, id int64, status, message string) error {
	_, err := pool.Exec(ctx, `
		UPDATE import_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3
		WHERE id = $1
	`, id, status, message)

	return err
}

func importPlaces(ctx context.Context, tx pgx.Tx, feedID string, loc *time.Location, stops []models.GTFSStop) error {
	batch := &pgx.Batch{}
	count := 0

	flush := func() error {
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to insert place batch at %d: %w", count, err)
			}
		}
		batch = &pgx.Batch{}
		return nil
	}

	for _, stop := range stops {
		batch.Queue(`
			INSERT INTO place (code, name, lat, lon, timezone)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO UPDATE
			SET name = EXCLUDED.name,
			    lat = EXCLUDED.lat,
			    lon = EXCLUDED.lon,
			    timezone = EXCLUDED.timezone
		`, placeCode(feedID, stop.StopID), stop.StopName, stop.Lat, stop.Lon, loc.String())

		count++
		if batch.Len() >= 1000 {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if batch.Len() > 0 {
		if err := flush(); err != nil {
			return err
		}
	}

	log.Printf("Imported %d places", count)
	return nil
}

// importLegs replaces the feed's legs for the imported service days
func importLegs(ctx context.Context, tx pgx.Tx, opts importOptions, legs []gtfs.Leg) error {
	last := opts.from.AddDate(0, 0, opts.days)
	tag, err := tx.Exec(ctx, `
		DELETE FROM leg
		WHERE feed = $1 AND service_date >= $2 AND service_date < $3
	`, opts.feedID, opts.from, last)
	if err != nil {
		return fmt.Errorf("failed to delete previous legs: %w", err)
	}
	if tag.RowsAffected() > 0 {
		log.Printf("Replaced %d previous legs", tag.RowsAffected())
	}

	if len(legs) == 0 {
		log.Println("No legs to import")
		return nil
	}

	columns := []string{
		"id", "from_code", "to_code", "departure_utc", "arrival_utc",
		"departure_offset", "arrival_offset", "duration_seconds", "transport_type",
		"schedule_id", "number", "title", "feed", "service_date",
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"leg"}, columns,
		pgx.CopyFromSlice(len(legs), func(i int) ([]any, error) {
			leg := legs[i]
			_, depOffset := leg.DepartureLocal.Zone()
			_, arrOffset := leg.ArrivalLocal.Zone()
			return []any{
				opts.feedID + ":" + leg.ID,
				leg.FromCode,
				leg.ToCode,
				leg.DepartureUTC,
				leg.ArrivalUTC,
				depOffset,
				arrOffset,
				int(leg.Duration / time.Second),
				string(leg.TransportType),
				leg.ScheduleID,
				leg.Number,
				leg.Title,
				opts.feedID,
				leg.ServiceDate,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy legs: %w", err)
	}

	log.Printf("Imported %d legs", n)
	return nil
}
