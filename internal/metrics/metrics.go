package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	PlansTotal      *prometheus.CounterVec // outcome label: ok|invalid|not_found|fetch_failed|error
	PlanItineraries prometheus.Histogram
	PlanDuration    prometheus.Histogram
	FetchDuration   *prometheus.HistogramVec // operation label
	FetchErrors     *prometheus.CounterVec   // operation label
	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec // route, method, status
	HTTPLatency     *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PlansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinerary_plans_total",
			Help: "Total planning requests by outcome.",
		}, []string{"outcome"}),
		PlanItineraries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "itinerary_plan_itineraries",
			Help:    "Number of feasible itineraries found per plan.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "itinerary_plan_duration_seconds",
			Help:    "Duration of a full planning run including fetches.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "itinerary_provider_fetch_duration_seconds",
			Help:    "Duration of schedule provider calls.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"operation"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinerary_provider_fetch_errors_total",
			Help: "Total failed schedule provider calls.",
		}, []string{"operation"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itinerary_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itinerary_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "itinerary_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "itinerary_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itinerary_http_requests_total",
			Help: "Total HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "itinerary_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		c.PlansTotal, c.PlanItineraries, c.PlanDuration,
		c.FetchDuration, c.FetchErrors,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.HTTPRequests, c.HTTPLatency,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// ObserveFetch records one provider call
func (c *Collector) ObserveFetch(operation string, d time.Duration, err error) {
	c.FetchDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		c.FetchErrors.WithLabelValues(operation).Inc()
	}
}

// ObservePlan records one planning run. itineraries is ignored unless the
// outcome is ok.
func (c *Collector) ObservePlan(outcome string, itineraries int, d time.Duration) {
	c.PlansTotal.WithLabelValues(outcome).Inc()
	c.PlanDuration.Observe(d.Seconds())
	if outcome == "ok" {
		c.PlanItineraries.Observe(float64(itineraries))
	}
}

// ObserveRequest records one HTTP request
func (c *Collector) ObserveRequest(route, method string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.HTTPLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
