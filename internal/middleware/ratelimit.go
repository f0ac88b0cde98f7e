package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_itinerary/internal/cache"
)

// RateLimits are the per-client request budgets. A zero limit is disabled.
type RateLimits struct {
	PerSecond int
	PerDay    int
}

// RateLimitMiddleware limits requests per client IP with fixed one-second and
// one-day windows. Counter failures let the request through.
func RateLimitMiddleware(counter cache.Counter, limits RateLimits) fiber.Handler {
	return rateLimit(counter, limits, time.Now)
}

func rateLimit(counter cache.Counter, limits RateLimits, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 500*time.Millisecond)
		defer cancel()

		t := now().UTC()
		client := c.IP()

		if limits.PerSecond > 0 {
			key := fmt.Sprintf("rl:ip:%s:second:%d", client, t.Unix())
			count, err := counter.Incr(ctx, key, 2*time.Second)
			if err != nil {
				log.Printf("Warning: rate limit counter failed: %v", err)
			} else if count > int64(limits.PerSecond) {
				c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
				c.Set("X-RateLimit-Remaining-Second", "0")
				c.Set("X-RateLimit-Reset-Second", strconv.FormatInt(t.Unix()+1, 10))
				c.Set("Retry-After", "1")

				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests per second",
					"limit_type":  "per_second",
					"limit":       limits.PerSecond,
					"retry_after": 1,
				})
			}
		}

		if limits.PerDay > 0 {
			key := fmt.Sprintf("rl:ip:%s:day:%s", client, t.Format("2006-01-02"))
			// 25 hours so a window never expires before its day ends
			count, err := counter.Incr(ctx, key, 25*time.Hour)
			if err != nil {
				log.Printf("Warning: rate limit counter failed: %v", err)
			} else {
				if count > int64(limits.PerDay) {
					tomorrow := t.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
					retryAfter := int64(midnight.Sub(t).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))
					c.Set("X-RateLimit-Remaining-Day", "0")
					c.Set("X-RateLimit-Reset-Day", strconv.FormatInt(midnight.Unix(), 10))
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"message":     "Daily quota exceeded",
						"limit_type":  "per_day",
						"limit":       limits.PerDay,
						"used":        count,
						"retry_after": retryAfter,
						"reset_at":    midnight.Format(time.RFC3339),
					})
				}
				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(limits.PerDay)-count, 10))
			}
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))

		return c.Next()
	}
}
