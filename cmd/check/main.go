package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/passbi/passbi_itinerary/internal/cache"
	"github.com/passbi/passbi_itinerary/internal/db"
)

func main() {
	_ = godotenv.Load()

	failed := false
	if !checkDatabase() {
		failed = true
	}
	if !checkRedis() {
		failed = true
	}
	if !checkNATS() {
		failed = true
	}

	if failed {
		fmt.Println("\n❌ Connection check failed")
		os.Exit(1)
	}
	fmt.Println("\n✅ Connection check completed successfully!")
}

func checkDatabase() bool {
	cfg := db.LoadConfigFromEnv()
	fmt.Println("🔗 Testing database connection...")
	fmt.Printf("   Target: %s\n\n", cfg.Target())

	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Printf("❌ Failed to create connection: %v", err)
		return false
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Printf("❌ Failed to ping database: %v", err)
		return false
	}
	fmt.Println("✅ Database connection successful")

	var pgVersion string
	if err := conn.QueryRow("SELECT version()").Scan(&pgVersion); err != nil {
		log.Printf("⚠️  Could not get PostgreSQL version: %v", err)
	} else {
		fmt.Printf("📊 PostgreSQL Version:\n   %s\n\n", pgVersion)
	}

	fmt.Println("📋 Checking itinerary tables...")
	missing := 0
	for _, table := range db.Tables {
		var count int64
		// table names come from the fixed schema list
		err := conn.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			fmt.Printf("   - %s: missing\n", table)
			missing++
			continue
		}
		fmt.Printf("   - %s: %d rows\n", table, count)
	}
	if missing > 0 {
		fmt.Println("   (run the importer or API once to create missing tables)")
	}

	var lastImport sql.NullString
	err = conn.QueryRow(`
		SELECT feed || ' ' || status || ' at ' || started_at::text
		FROM import_log
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&lastImport)
	if err == nil && lastImport.Valid {
		fmt.Printf("\n   Last import: %s\n", lastImport.String)
	}

	return true
}

func checkRedis() bool {
	fmt.Println("\n🔗 Testing Redis connection...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cache.GetClient(); err != nil {
		log.Printf("❌ Failed to connect to Redis: %v", err)
		return false
	}
	defer cache.Close()

	stats, err := cache.Stats(ctx)
	if err != nil {
		log.Printf("⚠️  Could not read Redis stats: %v", err)
		return true
	}
	fmt.Printf("✅ Redis connection successful (%v)\n", stats)
	return true
}

func checkNATS() bool {
	url := os.Getenv("NATS_URL")
	if url == "" {
		fmt.Println("\n⚠️  NATS_URL not set, skipping NATS check")
		return true
	}

	fmt.Printf("\n🔗 Testing NATS connection to %s...\n", url)
	nc, err := nats.Connect(url, nats.Name("passbi-itinerary-check"), nats.Timeout(5*time.Second))
	if err != nil {
		log.Printf("❌ Failed to connect to NATS: %v", err)
		return false
	}
	defer nc.Close()

	fmt.Printf("✅ NATS connection successful (server %s)\n", nc.ConnectedServerVersion())
	return true
}
