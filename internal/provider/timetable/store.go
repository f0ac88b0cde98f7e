package timetable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/provider"
)

// Store serves places and legs imported into PostgreSQL
type Store struct {
	pool     *pgxpool.Pool
	observer provider.FetchObserver
}

// New creates a timetable store on pool. observer may be nil.
func New(pool *pgxpool.Pool, observer provider.FetchObserver) *Store {
	return &Store{pool: pool, observer: observer}
}

// Resolve matches the place name exactly, then ignoring case
func (s *Store) Resolve(ctx context.Context, name string) (models.Place, error) {
	name = strings.TrimSpace(name)

	var p models.Place
	err := s.pool.QueryRow(ctx, `
		SELECT code, name FROM place
		WHERE name = $1
		ORDER BY code
		LIMIT 1
	`, name).Scan(&p.Code, &p.Name)

	if errors.Is(err, pgx.ErrNoRows) {
		err = s.pool.QueryRow(ctx, `
			SELECT code, name FROM place
			WHERE lower(name) = lower($1)
			ORDER BY code
			LIMIT 1
		`, name).Scan(&p.Code, &p.Name)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.Place{}, models.NotFoundError{Resource: "place", Name: name}
	}
	if err != nil {
		return models.Place{}, fmt.Errorf("failed to resolve place %q: %w", name, err)
	}
	return p, nil
}

// SearchPlaces lists places whose name starts with query
func (s *Store) SearchPlaces(ctx context.Context, query string, limit int) ([]models.Place, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT code, name FROM place
		WHERE lower(name) LIKE lower($1) || '%'
		ORDER BY name, code
		LIMIT $2
	`, escapeLike(strings.TrimSpace(query)), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search places: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		var p models.Place
		if err := rows.Scan(&p.Code, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// FetchLegs returns the legs from -> to departing on the UTC day of notBefore
func (s *Store) FetchLegs(ctx context.Context, from, to string, notBefore time.Time) (_ []models.LegCandidate, err error) {
	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveFetch("timetable", time.Since(start), err)
		}
	}()

	dayStart, dayEnd := serviceDay(notBefore)

	rows, err := s.pool.Query(ctx, `
		SELECT id, departure_utc, arrival_utc, departure_offset, arrival_offset,
		       duration_seconds, transport_type, schedule_id, number, title
		FROM leg
		WHERE from_code = $1 AND to_code = $2
		  AND departure_utc >= $3 AND departure_utc < $4
		ORDER BY departure_utc, id
	`, from, to, dayStart, dayEnd)
	if err != nil {
		return nil, models.FetchError{From: from, To: to, Err: err}
	}
	defer rows.Close()

	legs := []models.LegCandidate{}
	for rows.Next() {
		var r legRow
		if err := rows.Scan(&r.id, &r.departure, &r.arrival, &r.departureOffset, &r.arrivalOffset,
			&r.durationSeconds, &r.transportType, &r.scheduleID, &r.number, &r.title); err != nil {
			return nil, models.FetchError{From: from, To: to, Err: err}
		}
		legs = append(legs, r.candidate(from, to))
	}
	if err := rows.Err(); err != nil {
		return nil, models.FetchError{From: from, To: to, Err: err}
	}

	return legs, nil
}

type legRow struct {
	id              string
	departure       time.Time
	arrival         time.Time
	departureOffset int
	arrivalOffset   int
	durationSeconds int
	transportType   string
	scheduleID      string
	number          string
	title           string
}

func (r legRow) candidate(from, to string) models.LegCandidate {
	return models.LegCandidate{
		ID:             r.id,
		FromCode:       from,
		ToCode:         to,
		DepartureUTC:   r.departure.UTC(),
		ArrivalUTC:     r.arrival.UTC(),
		DepartureLocal: r.departure.In(time.FixedZone("", r.departureOffset)),
		ArrivalLocal:   r.arrival.In(time.FixedZone("", r.arrivalOffset)),
		Duration:       time.Duration(r.durationSeconds) * time.Second,
		TransportType:  models.TransportType(r.transportType),
		ScheduleID:     r.scheduleID,
		Number:         r.number,
		Title:          r.title,
	}
}

// serviceDay returns the UTC day containing t
func serviceDay(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
