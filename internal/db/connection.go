package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool     *pgxpool.Pool
	poolOnce sync.Once
	poolErr  error
)

// transactionPoolerPort is the port poolers such as Supabase's use in
// transaction mode, where named prepared statements are rejected.
const transactionPoolerPort = 6543

// Config holds database settings. URL, when set, takes precedence over the
// individual DB_* parts.
type Config struct {
	URL      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32
}

// LoadConfigFromEnv reads DATABASE_URL or PG_DSN, falling back to DB_* parts
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	minConns, _ := strconv.Atoi(getEnv("DB_MIN_CONNS", "2"))
	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))

	return &Config{
		URL:      firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		Database: getEnv("DB_NAME", "passbi_itinerary"),
		User:     getEnv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MinConns: int32(minConns),
		MaxConns: int32(maxConns),
	}
}

// DSN returns a postgres:// connection URL usable by pgx and lib/pq
func (c *Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// Target describes where the config points, without credentials
func (c *Config) Target() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			return u.Host + u.Path
		}
		return "(DATABASE_URL)"
	}
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}

// Enabled reports whether a database is configured for the optional features
// (plan history, usage analytics)
func Enabled() bool {
	for _, k := range []string{"DATABASE_URL", "PG_DSN", "DB_HOST", "DB_NAME"} {
		if os.Getenv(k) != "" {
			return true
		}
	}
	return false
}

// GetDB returns the process-wide pool, connecting on first use
func GetDB() (*pgxpool.Pool, error) {
	poolOnce.Do(func() {
		pool, poolErr = open(LoadConfigFromEnv())
	})
	return pool, poolErr
}

func poolConfig(cfg *Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	if pc.ConnConfig.Port == transactionPoolerPort {
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	return pc, nil
}

func open(cfg *Config) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("unable to ping database %s: %w", cfg.Target(), err)
	}
	return p, nil
}

// Close closes the pool if it was opened
func Close() {
	if pool != nil {
		pool.Close()
	}
}

// HealthCheck pings the database and checks the timetable schema is present
func HealthCheck(ctx context.Context) error {
	db, err := GetDB()
	if err != nil {
		return fmt.Errorf("database connection not initialized: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var places int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM place").Scan(&places); err != nil {
		return fmt.Errorf("timetable schema not available: %w", err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
