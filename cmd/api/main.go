package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/passbi/passbi_itinerary/internal/api"
	"github.com/passbi/passbi_itinerary/internal/cache"
	"github.com/passbi/passbi_itinerary/internal/config"
	"github.com/passbi/passbi_itinerary/internal/db"
	"github.com/passbi/passbi_itinerary/internal/history"
	"github.com/passbi/passbi_itinerary/internal/metrics"
	"github.com/passbi/passbi_itinerary/internal/middleware"
	"github.com/passbi/passbi_itinerary/internal/planner"
	"github.com/passbi/passbi_itinerary/internal/provider"
	"github.com/passbi/passbi_itinerary/internal/provider/rasp"
	"github.com/passbi/passbi_itinerary/internal/provider/timetable"
	"github.com/passbi/passbi_itinerary/internal/publisher"
)

func main() {
	log.Println("Starting PassBi itinerary API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	collector := metrics.NewCollector()
	server := &api.Server{Metrics: collector.Handler()}
	var plannerOpts []planner.Option
	var sink middleware.UsageSink

	// Database backs the timetable provider, plan history and usage analytics
	if db.Enabled() || cfg.Provider == config.ProviderPostgres {
		pool, err := db.GetDB()
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(context.Background(), pool); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		log.Println("✓ Database connection established")

		recorder := history.NewRecorder(pool)
		usage := middleware.NewPGUsageSink(pool)
		plannerOpts = append(plannerOpts, planner.WithRecorder(recorder))
		server.Plans = recorder
		server.Usage = usage
		server.Health = append(server.Health, api.HealthCheck{Name: "database", Check: db.HealthCheck})
		sink = usage
	} else {
		log.Println("Database not configured, plan history and usage analytics disabled")
	}

	// Redis backs the rate limit counters
	var counter cache.Counter
	if cfg.RedisEnabled {
		rdb, err := cache.GetClient()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
		counter = cache.NewRedisCounter(rdb)
		server.Health = append(server.Health, api.HealthCheck{Name: "redis", Check: cache.HealthCheck})
		log.Println("✓ Redis connection established")
	} else {
		counter = cache.NewMemoryCounter()
		log.Println("Redis disabled, rate limits are tracked in memory")
	}

	source, err := newProvider(cfg, collector)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}
	server.Places = source
	log.Printf("✓ Schedule provider: %s", cfg.Provider)

	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, collector)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		plannerOpts = append(plannerOpts, planner.WithNotifier(pub))
		log.Printf("✓ Publishing plans to %s.>", cfg.NATSSubjectPrefix)
	}

	plannerOpts = append(plannerOpts,
		planner.WithConcurrency(cfg.FetchConcurrency),
		planner.WithObserver(collector),
	)
	p := planner.New(source, plannerOpts...)
	server.Planner = p

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PassBi Itinerary API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: api.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.MetricsMiddleware(collector))
	app.Use(middleware.RateLimitMiddleware(counter, middleware.RateLimits{
		PerSecond: cfg.RateLimitSecond,
		PerDay:    cfg.RateLimitDay,
	}))
	if sink != nil {
		app.Use(middleware.AnalyticsMiddleware(sink))
	}

	// Routes
	server.Register(app)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.APIPort)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Plan itineraries: POST http://localhost%s/v1/itineraries", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	// Let pending history writes finish before the pool closes
	p.Wait()
}

func newProvider(cfg *config.Config, observer provider.FetchObserver) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderPostgres:
		pool, err := db.GetDB()
		if err != nil {
			return nil, err
		}
		return timetable.New(pool, observer), nil
	default:
		return rasp.New(rasp.Config{
			BaseURL: cfg.RaspBaseURL,
			APIKey:  cfg.RaspAPIKey,
			Lang:    cfg.RaspLang,
			Timeout: cfg.HTTPTimeout,
		}, rasp.WithObserver(observer)), nil
	}
}
