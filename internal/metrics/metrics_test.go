package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestObserveFetch(t *testing.T) {
	c := NewCollector()
	c.ObserveFetch("search", 20*time.Millisecond, nil)
	c.ObserveFetch("search", 30*time.Millisecond, errors.New("boom"))
	c.ObserveFetch("stations_list", time.Second, nil)

	body := scrape(t, c)
	assert.Contains(t, body, `itinerary_provider_fetch_errors_total{operation="search"} 1`)
	assert.NotContains(t, body, `itinerary_provider_fetch_errors_total{operation="stations_list"}`)
	assert.Contains(t, body, `itinerary_provider_fetch_duration_seconds_count{operation="search"} 2`)
	assert.Contains(t, body, `itinerary_provider_fetch_duration_seconds_count{operation="stations_list"} 1`)
}

func TestObservePlan(t *testing.T) {
	c := NewCollector()
	c.ObservePlan("ok", 3, time.Second)
	c.ObservePlan("not_found", 0, time.Millisecond)
	c.ObservePlan("ok", 0, time.Second)

	body := scrape(t, c)
	assert.Contains(t, body, `itinerary_plans_total{outcome="ok"} 2`)
	assert.Contains(t, body, `itinerary_plans_total{outcome="not_found"} 1`)
	assert.Contains(t, body, "itinerary_plan_itineraries_count 2")
	assert.Contains(t, body, "itinerary_plan_duration_seconds_count 3")
}

func TestNATSGauges(t *testing.T) {
	c := NewCollector()
	c.NATSSetConnected(true)
	assert.Contains(t, scrape(t, c), "itinerary_nats_connected 1")
	c.NATSSetConnected(false)
	assert.Contains(t, scrape(t, c), "itinerary_nats_connected 0")

	c.NATSPublishedInc()
	c.NATSPublishErrInc()
	c.PublishObserve(time.Millisecond)
	body := scrape(t, c)
	assert.Contains(t, body, "itinerary_nats_published_total 1")
	assert.Contains(t, body, "itinerary_nats_publish_errors_total 1")
	assert.Contains(t, body, "itinerary_publish_duration_seconds_count 1")
}

func TestObserveRequest(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest("/v1/itineraries", "POST", 200, 15*time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `itinerary_http_requests_total{method="POST",route="/v1/itineraries",status="200"} 1`)
	assert.Contains(t, body, `itinerary_http_request_duration_seconds_count{method="POST",route="/v1/itineraries"} 1`)
}
