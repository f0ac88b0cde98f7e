package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderRasp     = "rasp"
	ProviderPostgres = "postgres"
)

type Config struct {
	Provider          string
	RaspAPIKey        string
	RaspBaseURL       string
	RaspLang          string
	HTTPTimeout       time.Duration
	FetchConcurrency  int
	APIPort           string
	NATSURL           string
	NATSSubjectPrefix string
	RateLimitSecond   int
	RateLimitDay      int
	RedisEnabled      bool
}

// Load reads the process configuration from the environment, loading a .env
// file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Provider:          strings.ToLower(getenvDefault("PROVIDER", ProviderRasp)),
		RaspAPIKey:        os.Getenv("RASP_API_KEY"),
		RaspBaseURL:       getenvDefault("RASP_BASE_URL", "https://api.rasp.yandex.net/v3.0"),
		RaspLang:          getenvDefault("RASP_LANG", "ru_RU"),
		APIPort:           getenvDefault("API_PORT", "8080"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getenvDefault("NATS_SUBJECT_PREFIX", "itinerary.planned"),
	}

	switch cfg.Provider {
	case ProviderRasp:
		if cfg.RaspAPIKey == "" {
			return nil, fmt.Errorf("RASP_API_KEY must be set when PROVIDER=%s", ProviderRasp)
		}
	case ProviderPostgres:
	default:
		return nil, fmt.Errorf("invalid PROVIDER: %q (want %s or %s)", cfg.Provider, ProviderRasp, ProviderPostgres)
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %q", v)
		}
		cfg.HTTPTimeout = d
	} else {
		cfg.HTTPTimeout = 15 * time.Second
	}

	var err error
	if cfg.FetchConcurrency, err = positiveInt("FETCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.RateLimitSecond, err = positiveInt("RATE_LIMIT_PER_SECOND", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitDay, err = positiveInt("RATE_LIMIT_PER_DAY", 2000); err != nil {
		return nil, err
	}

	cfg.RedisEnabled = true
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisEnabled = parseBool(v)
	}

	return cfg, nil
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
