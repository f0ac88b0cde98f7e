package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/planner"
)

// Entry is a plan read back from plan_log
type Entry struct {
	ID             uuid.UUID          `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Criterion      string             `json:"criterion"`
	Stops          []models.Stop      `json:"stops"`
	ItineraryCount int                `json:"itinerary_count"`
	DurationMs     int64              `json:"duration_ms"`
	Itineraries    []models.Itinerary `json:"itineraries"`
	Directory      models.Directory   `json:"directory"`
}

// result is the JSON stored in plan_log.result
type result struct {
	Itineraries []models.Itinerary `json:"itineraries"`
	Directory   models.Directory   `json:"directory"`
}

// Recorder keeps completed plans in plan_log
type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record inserts a plan. Recording the same plan twice is a no-op.
func (r *Recorder) Record(ctx context.Context, p *planner.Plan) error {
	stops, res, err := encode(p)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO plan_log (id, created_at, criterion, stops, itinerary_count, duration_ms, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.CreatedAt, p.Criterion, stops, len(p.Itineraries), p.Elapsed.Milliseconds(), res)
	if err != nil {
		return fmt.Errorf("failed to record plan %s: %w", p.ID, err)
	}
	return nil
}

// Get reads a plan back. An unknown id is a models.NotFoundError.
func (r *Recorder) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var (
		e     Entry
		stops []byte
		res   []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at, criterion, stops, itinerary_count, duration_ms, result
		FROM plan_log
		WHERE id = $1
	`, id).Scan(&e.ID, &e.CreatedAt, &e.Criterion, &stops, &e.ItineraryCount, &e.DurationMs, &res)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError{Resource: "plan", Name: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
	}

	if err := decode(&e, stops, res); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", id, err)
	}
	return &e, nil
}

func encode(p *planner.Plan) (stops, res []byte, err error) {
	stops, err = json.Marshal(p.Stops)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal stops: %w", err)
	}
	res, err = json.Marshal(result{Itineraries: p.Itineraries, Directory: p.Directory})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return stops, res, nil
}

func decode(e *Entry, stops, res []byte) error {
	if err := json.Unmarshal(stops, &e.Stops); err != nil {
		return err
	}
	var r result
	if err := json.Unmarshal(res, &r); err != nil {
		return err
	}
	e.Itineraries = r.Itineraries
	e.Directory = r.Directory
	return nil
}
