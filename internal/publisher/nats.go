package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	nc      *nats.Conn
	prefix  string
	metrics PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("passbi-itinerary"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PlanEvent announces a completed planning run
type PlanEvent struct {
	PlanID      string    `json:"planId"`
	CreatedAt   time.Time `json:"createdAt"`
	Criterion   string    `json:"criterion"`
	Stops       []string  `json:"stops"`
	Itineraries int       `json:"itineraries"`
	BestTotal   float64   `json:"bestTotalHours,omitempty"`
	BestTravel  float64   `json:"bestTravelHours,omitempty"`
}

// Subject returns <prefix>.<origin>.<destination> for the event
func (p *NATSPublisher) Subject(ev PlanEvent) string {
	from, to := "", ""
	if len(ev.Stops) > 0 {
		from, to = ev.Stops[0], ev.Stops[len(ev.Stops)-1]
	}
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(from), subjectToken(to))
}

func (p *NATSPublisher) PublishPlan(ev PlanEvent) error {
	subject := p.Subject(ev)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
