package middleware

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ItineraryCountKey is the fiber local a handler sets to report how many
// itineraries a response carried
const ItineraryCountKey = "itinerary_count"

// RequestLog holds information about an API request for logging
type RequestLog struct {
	Endpoint       string
	Method         string
	ResponseTimeMs int
	ResponseStatus int
	ItineraryCount *int
	IPAddress      string
	UserAgent      string
	Timestamp      time.Time
}

// UsageSink stores request logs
type UsageSink interface {
	LogRequest(ctx context.Context, reqLog *RequestLog) error
}

// AnalyticsMiddleware logs every API request asynchronously
func AnalyticsMiddleware(sink UsageSink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		responseTime := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		requestLog := &RequestLog{
			Endpoint:       utils.CopyString(c.Path()),
			Method:         utils.CopyString(c.Method()),
			ResponseTimeMs: int(responseTime.Milliseconds()),
			ResponseStatus: status,
			IPAddress:      utils.CopyString(c.IP()),
			UserAgent:      utils.CopyString(c.Get(fiber.HeaderUserAgent)),
			Timestamp:      time.Now().UTC(),
		}
		if n, ok := c.Locals(ItineraryCountKey).(int); ok {
			requestLog.ItineraryCount = &n
		}

		// Path, method and headers point into buffers fiber reuses once the
		// handler returns; requestLog only holds copies.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sink.LogRequest(ctx, requestLog); err != nil {
				log.Println("Failed to log request:", err)
			}
		}()

		c.Set("X-Response-Time", responseTime.String())

		return err
	}
}

// PGUsageSink writes request logs to usage_log
type PGUsageSink struct {
	db *pgxpool.Pool
}

func NewPGUsageSink(db *pgxpool.Pool) *PGUsageSink {
	return &PGUsageSink{db: db}
}

func (s *PGUsageSink) LogRequest(ctx context.Context, reqLog *RequestLog) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_log (
			endpoint,
			method,
			response_time_ms,
			response_status,
			itinerary_count,
			ip_address,
			user_agent,
			timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		reqLog.Endpoint,
		reqLog.Method,
		reqLog.ResponseTimeMs,
		reqLog.ResponseStatus,
		reqLog.ItineraryCount,
		reqLog.IPAddress,
		reqLog.UserAgent,
		reqLog.Timestamp,
	)
	return err
}

// DailyUsage aggregates one day of usage_log
type DailyUsage struct {
	Date              string  `json:"date"`
	TotalRequests     int64   `json:"total_requests"`
	Successful        int64   `json:"successful"`
	Failed            int64   `json:"failed"`
	AvgResponseMs     float64 `json:"avg_response_ms"`
	MaxResponseMs     int     `json:"max_response_ms"`
	ItinerariesServed int64   `json:"itineraries_served"`
	UniqueIPs         int64   `json:"unique_ips"`
}

// UsageSummary totals a range of DailyUsage
type UsageSummary struct {
	TotalRequests int64   `json:"total_requests"`
	SuccessRate   float64 `json:"success_rate"`
	AvgResponseMs float64 `json:"avg_response_ms"`
	DaysAnalyzed  int     `json:"days_analyzed"`
}

// Stats returns daily usage between start and end, most recent day first
func (s *PGUsageSink) Stats(ctx context.Context, start, end time.Time) ([]DailyUsage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			DATE(timestamp) AS date,
			COUNT(*) AS total_requests,
			COUNT(*) FILTER (WHERE response_status >= 200 AND response_status < 300) AS successful,
			COUNT(*) FILTER (WHERE response_status >= 400) AS failed,
			AVG(response_time_ms)::float8 AS avg_response_time,
			MAX(response_time_ms) AS max_response_time,
			COALESCE(SUM(itinerary_count), 0) AS itineraries,
			COUNT(DISTINCT ip_address) AS unique_ips
		FROM usage_log
		WHERE timestamp >= $1 AND timestamp <= $2
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	stats := []DailyUsage{}
	for rows.Next() {
		var (
			d    DailyUsage
			date time.Time
		)
		if err := rows.Scan(&date, &d.TotalRequests, &d.Successful, &d.Failed,
			&d.AvgResponseMs, &d.MaxResponseMs, &d.ItinerariesServed, &d.UniqueIPs); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		d.Date = date.Format("2006-01-02")
		stats = append(stats, d)
	}
	return stats, rows.Err()
}

// Summarize totals daily usage
func Summarize(stats []DailyUsage) UsageSummary {
	if len(stats) == 0 {
		return UsageSummary{}
	}

	var total, successful int64
	var sumAvg float64
	for _, d := range stats {
		total += d.TotalRequests
		successful += d.Successful
		sumAvg += d.AvgResponseMs
	}

	summary := UsageSummary{
		TotalRequests: total,
		AvgResponseMs: sumAvg / float64(len(stats)),
		DaysAnalyzed:  len(stats),
	}
	if total > 0 {
		summary.SuccessRate = float64(successful) / float64(total) * 100
	}
	return summary
}
