package planner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/provider"
	"github.com/passbi/passbi_itinerary/internal/publisher"
	"github.com/passbi/passbi_itinerary/internal/routing"
	"github.com/passbi/passbi_itinerary/internal/store"
	"golang.org/x/sync/errgroup"
)

// StopRequest is one stop as entered by a user: a place name and the day on
// which the leg leaving it may depart at the earliest.
type StopRequest struct {
	Name string    `json:"city"`
	Date time.Time `json:"date"`
}

// TripRequest is the input of a planning run
type TripRequest struct {
	Stops     []StopRequest `json:"stops"`
	Criterion string        `json:"criterion"`
}

// Plan is the ranked outcome of a planning run
type Plan struct {
	ID          uuid.UUID          `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	Criterion   string             `json:"criterion"`
	Stops       []models.Stop      `json:"stops"`
	Itineraries []models.Itinerary `json:"itineraries"`
	Directory   models.Directory   `json:"directory"`
	Elapsed     time.Duration      `json:"-"`
}

// Notifier announces completed plans
type Notifier interface {
	PublishPlan(ev publisher.PlanEvent) error
}

// Recorder persists completed plans
type Recorder interface {
	Record(ctx context.Context, p *Plan) error
}

// Observer receives the outcome of every planning run
type Observer interface {
	ObservePlan(outcome string, itineraries int, d time.Duration)
}

// Source is what the planner needs from a schedule provider
type Source interface {
	provider.PlaceResolver
	provider.ScheduleFetcher
}

const defaultConcurrency = 4

// Planner runs the resolve, fetch, search and rank pipeline
type Planner struct {
	source      Source
	concurrency int
	notifier    Notifier
	recorder    Recorder
	observer    Observer
	now         func() time.Time

	background sync.WaitGroup
}

type Option func(*Planner)

// WithConcurrency bounds the number of concurrent provider calls
func WithConcurrency(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithNotifier(n Notifier) Option { return func(p *Planner) { p.notifier = n } }

func WithRecorder(r Recorder) Option { return func(p *Planner) { p.recorder = r } }

func WithObserver(o Observer) Option { return func(p *Planner) { p.observer = o } }

func New(source Source, opts ...Option) *Planner {
	p := &Planner{
		source:      source,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan resolves the requested stops, fetches candidate legs for every
// consecutive pair and returns the feasible itineraries ranked by the
// requested criterion. Finding no itinerary is not an error.
func (p *Planner) Plan(ctx context.Context, req TripRequest) (*Plan, error) {
	start := p.now()

	plan, err := p.plan(ctx, req)
	elapsed := p.now().Sub(start)

	if p.observer != nil {
		n := 0
		if plan != nil {
			n = len(plan.Itineraries)
		}
		p.observer.ObservePlan(outcome(err), n, elapsed)
	}
	if err != nil {
		return nil, err
	}

	plan.Elapsed = elapsed
	log.Printf("plan %s: %d stops, %d itineraries in %v", plan.ID, len(plan.Stops), len(plan.Itineraries), elapsed)

	p.publish(plan)
	p.record(ctx, plan)
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, req TripRequest) (*Plan, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	places, err := p.resolve(ctx, req.Stops)
	if err != nil {
		return nil, err
	}

	stops := make([]models.Stop, len(req.Stops))
	dir := make(models.Directory, len(places))
	for i, s := range req.Stops {
		place := places[normalizeName(s.Name)]
		stops[i] = models.Stop{
			Name:              place.Name,
			Code:              place.Code,
			EarliestDeparture: s.Date.UTC(),
		}
		dir[place.Code] = place.Name
	}

	if err := routing.ValidateTrip(stops); err != nil {
		return nil, err
	}

	candidates, err := p.fetch(ctx, stops)
	if err != nil {
		return nil, err
	}

	criterion := routing.GetCriterion(req.Criterion)
	itineraries := routing.Rank(routing.Search(stops, candidates), criterion)

	return &Plan{
		ID:          uuid.New(),
		CreatedAt:   p.now().UTC(),
		Criterion:   criterion.Name(),
		Stops:       stops,
		Itineraries: itineraries,
		Directory:   dir,
	}, nil
}

func validateRequest(req TripRequest) error {
	if len(req.Stops) < 2 {
		return models.InvalidTripError{Field: "stops", Msg: "at least two stops are required"}
	}
	for i, s := range req.Stops {
		if strings.TrimSpace(s.Name) == "" {
			return models.InvalidTripError{Field: fmt.Sprintf("stops[%d].city", i), Msg: "is required"}
		}
		if s.Date.IsZero() {
			return models.InvalidTripError{Field: fmt.Sprintf("stops[%d].date", i), Msg: "is required"}
		}
	}
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// resolve looks up every distinct stop name concurrently
func (p *Planner) resolve(ctx context.Context, reqs []StopRequest) (map[string]models.Place, error) {
	var names []string
	seen := make(map[string]bool)
	for _, s := range reqs {
		name := normalizeName(s.Name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	resolved := make([]models.Place, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, name := range names {
		g.Go(func() error {
			place, err := p.source.Resolve(gctx, name)
			if err != nil {
				return err
			}
			resolved[i] = place
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	places := make(map[string]models.Place, len(names))
	for i, name := range names {
		places[name] = resolved[i]
	}
	return places, nil
}

// fetchTask is one provider call: a stop-pair on one UTC day. A pair visited
// twice on different days is fetched once per day and merged.
type fetchTask struct {
	pair      models.StopPair
	notBefore time.Time
}

func (p *Planner) fetch(ctx context.Context, stops []models.Stop) (*store.CandidateStore, error) {
	var tasks []fetchTask
	seen := make(map[fetchTask]bool)
	for i := 0; i < len(stops)-1; i++ {
		t := fetchTask{
			pair:      models.StopPair{From: stops[i].Code, To: stops[i+1].Code},
			notBefore: utcDay(stops[i].EarliestDeparture),
		}
		if !seen[t] {
			seen[t] = true
			tasks = append(tasks, t)
		}
	}

	results := make([][]models.LegCandidate, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			legs, err := p.source.FetchLegs(gctx, t.pair.From, t.pair.To, t.notBefore)
			if err != nil {
				if !models.IsFetchFailed(err) {
					err = models.FetchError{From: t.pair.From, To: t.pair.To, Err: err}
				}
				return err
			}
			results[i] = legs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[models.StopPair][]models.LegCandidate)
	var order []models.StopPair
	for i, t := range tasks {
		if _, ok := merged[t.pair]; !ok {
			order = append(order, t.pair)
			merged[t.pair] = []models.LegCandidate{}
		}
		merged[t.pair] = appendDistinct(merged[t.pair], results[i])
	}

	candidates := store.New()
	for _, pair := range order {
		if err := candidates.Put(pair, merged[pair]); err != nil {
			return nil, models.FetchError{From: pair.From, To: pair.To, Err: err}
		}
	}
	return candidates, nil
}

// appendDistinct appends legs whose ID is not already present. Legs without an
// ID are always kept.
func appendDistinct(dst, legs []models.LegCandidate) []models.LegCandidate {
	ids := make(map[string]bool, len(dst))
	for _, l := range dst {
		if l.ID != "" {
			ids[l.ID] = true
		}
	}
	for _, l := range legs {
		if l.ID != "" && ids[l.ID] {
			continue
		}
		if l.ID != "" {
			ids[l.ID] = true
		}
		dst = append(dst, l)
	}
	return dst
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (p *Planner) publish(plan *Plan) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishPlan(EventOf(plan)); err != nil {
		log.Printf("plan %s: publish failed: %v", plan.ID, err)
	}
}

// record stores the plan in the background so a slow database never delays
// the caller. Wait blocks until pending records are written.
func (p *Planner) record(ctx context.Context, plan *Plan) {
	if p.recorder == nil {
		return
	}
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.recorder.Record(rctx, plan); err != nil {
			log.Printf("plan %s: history record failed: %v", plan.ID, err)
		}
	}()
}

// Wait blocks until background work started by Plan has finished
func (p *Planner) Wait() {
	p.background.Wait()
}

// EventOf summarizes a plan for publication
func EventOf(plan *Plan) publisher.PlanEvent {
	ev := publisher.PlanEvent{
		PlanID:      plan.ID.String(),
		CreatedAt:   plan.CreatedAt,
		Criterion:   plan.Criterion,
		Itineraries: len(plan.Itineraries),
	}
	for _, s := range plan.Stops {
		ev.Stops = append(ev.Stops, s.Code)
	}
	if len(plan.Itineraries) > 0 {
		best := plan.Itineraries[0]
		ev.BestTotal = best.TotalTime.Hours()
		ev.BestTravel = best.TravelTime.Hours()
	}
	return ev
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case models.IsInvalidTrip(err):
		return "invalid"
	case models.IsNotFound(err):
		return "not_found"
	case models.IsFetchFailed(err):
		return "fetch_failed"
	default:
		return "error"
	}
}
