package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestObserver receives one observation per HTTP request
type RequestObserver interface {
	ObserveRequest(route, method string, status int, d time.Duration)
}

// MetricsMiddleware records request counts and latency by route template, so
// /v1/itineraries/:id is one series rather than one per id.
func MetricsMiddleware(obs RequestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		route := c.Route().Path
		if route == "" || route == "/" && c.Path() != "/" {
			route = "unmatched"
		}
		obs.ObserveRequest(route, c.Method(), status, time.Since(start))
		return err
	}
}
