package api

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/passbi/passbi_itinerary/internal/config"
	"github.com/passbi/passbi_itinerary/internal/history"
	"github.com/passbi/passbi_itinerary/internal/middleware"
	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/planner"
	"github.com/passbi/passbi_itinerary/internal/present"
	"github.com/passbi/passbi_itinerary/internal/provider"
	"github.com/passbi/passbi_itinerary/internal/routing"
)

// Planner runs planning requests
type Planner interface {
	Plan(ctx context.Context, req planner.TripRequest) (*planner.Plan, error)
}

// PlanStore reads recorded plans
type PlanStore interface {
	Get(ctx context.Context, id uuid.UUID) (*history.Entry, error)
}

// UsageStats reads aggregated API usage
type UsageStats interface {
	Stats(ctx context.Context, start, end time.Time) ([]middleware.DailyUsage, error)
}

// HealthCheck is one named dependency check
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server holds the dependencies of the HTTP handlers. Plans, Usage and
// Metrics are optional; their endpoints answer 503 or are not mounted
// without them.
type Server struct {
	Planner Planner
	Places  provider.PlaceSearcher
	Plans   PlanStore
	Usage   UsageStats
	Health  []HealthCheck
	Metrics http.Handler
}

// PlanResponse is the API response of a planning request
type PlanResponse struct {
	ID          string                  `json:"id"`
	CreatedAt   time.Time               `json:"created_at"`
	Criterion   string                  `json:"criterion"`
	Stops       []models.Stop           `json:"stops"`
	Count       int                     `json:"count"`
	Itineraries []present.ItineraryView `json:"itineraries"`
}

// Register mounts every route on app
func (s *Server) Register(app *fiber.App) {
	app.Get("/health", s.HealthStatus)
	if s.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.Metrics))
	}

	v1 := app.Group("/v1")
	v1.Post("/itineraries", s.CreateItineraries)
	v1.Get("/itineraries/:id", s.GetItineraries)
	v1.Get("/places/search", s.SearchPlaces)
	v1.Get("/criteria", s.ListCriteria)
	v1.Get("/usage", s.UsageReport)
}

// CreateItineraries handles POST /v1/itineraries. The format query parameter
// selects json (default), text or pdf output.
func (s *Server) CreateItineraries(c *fiber.Ctx) error {
	var trip config.Trip
	if err := c.BodyParser(&trip); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}

	format := strings.ToLower(c.Query("format", "json"))
	if format != "json" && format != "text" && format != "pdf" {
		return c.Status(400).JSON(fiber.Map{
			"error": "format must be json, text or pdf",
		})
	}

	req, err := planner.RequestFromTrip(&trip)
	if err != nil {
		return writeError(c, err)
	}

	plan, err := s.Planner.Plan(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	c.Locals(middleware.ItineraryCountKey, len(plan.Itineraries))

	switch format {
	case "text":
		var buf bytes.Buffer
		if err := present.Text(&buf, plan.Itineraries, plan.Directory); err != nil {
			return writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(201).Send(buf.Bytes())
	case "pdf":
		var buf bytes.Buffer
		if err := present.PDF(&buf, plan.Itineraries, plan.Directory, present.PDFOptions{Title: tripTitle(plan)}); err != nil {
			return writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		return c.Status(201).Send(buf.Bytes())
	}

	return c.Status(201).JSON(PlanResponse{
		ID:          plan.ID.String(),
		CreatedAt:   plan.CreatedAt,
		Criterion:   plan.Criterion,
		Stops:       plan.Stops,
		Count:       len(plan.Itineraries),
		Itineraries: present.Views(plan.Itineraries, plan.Directory),
	})
}

// GetItineraries handles GET /v1/itineraries/:id
func (s *Server) GetItineraries(c *fiber.Ctx) error {
	if s.Plans == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "plan history is not available",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid plan id",
		})
	}

	entry, err := s.Plans.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(PlanResponse{
		ID:          entry.ID.String(),
		CreatedAt:   entry.CreatedAt,
		Criterion:   entry.Criterion,
		Stops:       entry.Stops,
		Count:       len(entry.Itineraries),
		Itineraries: present.Views(entry.Itineraries, entry.Directory),
	})
}

// SearchPlaces handles GET /v1/places/search
func (s *Server) SearchPlaces(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameter: q",
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid limit (must be between 1 and 100)",
		})
	}

	places, err := s.Places.SearchPlaces(c.UserContext(), query, limit)
	if err != nil {
		return writeError(c, err)
	}
	if places == nil {
		places = []models.Place{}
	}

	return c.JSON(fiber.Map{
		"places": places,
	})
}

// ListCriteria handles GET /v1/criteria
func (s *Server) ListCriteria(c *fiber.Ctx) error {
	criteria := routing.GetAllCriteria()
	names := make([]string, 0, len(criteria))
	for _, cr := range criteria {
		names = append(names, cr.Name())
	}

	return c.JSON(fiber.Map{
		"criteria": names,
		"default":  routing.CriterionNone,
	})
}

// UsageReport handles GET /v1/usage
func (s *Server) UsageReport(c *fiber.Ctx) error {
	if s.Usage == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "usage analytics are not available",
		})
	}

	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days < 1 || days > 90 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid days (must be between 1 and 90)",
		})
	}

	end := time.Now().UTC()
	stats, err := s.Usage.Stats(c.UserContext(), end.AddDate(0, 0, -days), end)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"stats":   stats,
		"summary": middleware.Summarize(stats),
	})
}

// HealthStatus handles the /health endpoint
func (s *Server) HealthStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := 200
	checks := fiber.Map{}
	for _, hc := range s.Health {
		if err := hc.Check(ctx); err != nil {
			checks[hc.Name] = err.Error()
			status = "unhealthy"
			httpStatus = 503
			continue
		}
		checks[hc.Name] = "ok"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// StatusOf maps an error to its HTTP status
func StatusOf(err error) int {
	switch {
	case models.IsInvalidTrip(err):
		return 400
	case models.IsNotFound(err):
		return 404
	case models.IsFetchFailed(err):
		return 502
	default:
		if e, ok := err.(*fiber.Error); ok {
			return e.Code
		}
		return 500
	}
}

func writeError(c *fiber.Ctx, err error) error {
	code := StatusOf(err)
	msg := err.Error()
	if code == 500 {
		log.Printf("Error: %v", err)
		msg = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}

// ErrorHandler renders errors returned from handlers with the same mapping
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}

func tripTitle(plan *planner.Plan) string {
	names := make([]string, 0, len(plan.Stops))
	for _, s := range plan.Stops {
		names = append(names, plan.Directory.Name(s.Code))
	}
	return strings.Join(names, " - ")
}
