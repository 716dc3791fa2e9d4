package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds every tunable of the service, loaded from the environment.
type AppConfig struct {
	Port string

	// Upstream concurrency. Extraction is expensive; search is cheap and
	// gets a wider bound. Both exist to respect upstream rate limits, not
	// local CPU.
	IOConcurrency     int
	SearchConcurrency int

	// SearchRadiusDeg is the half-width of the bounding box used for
	// granule searches.
	SearchRadiusDeg float64

	// PreciseDeadline timeboxes the whole Earthdata path per request;
	// PowerTimeout bounds each POWER call including retries.
	PreciseDeadline time.Duration
	PowerTimeout    time.Duration

	// SearchCacheTTL controls how long resolved granule handles stay fresh.
	SearchCacheTTL time.Duration

	// SufficiencyRatio is the fraction of requested years after which the
	// collector cuts its losses; MinViablePoints is the smallest precise
	// result preferred over the fast source.
	SufficiencyRatio float64
	MinViablePoints  int

	// GeocoderAPIKey enables city/country resolution when set.
	GeocoderAPIKey string

	CORSOrigins []string
}

// Load reads configuration from the environment with defaults that match the
// deployed service.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:              getEnv("PORT", "8000"),
		IOConcurrency:     getEnvAsInt("IO_CONCURRENCY", 8),
		SearchConcurrency: getEnvAsInt("SEARCH_CONCURRENCY", 12),
		MinViablePoints:   getEnvAsInt("MIN_VIABLE_POINTS", 3),
		GeocoderAPIKey:    os.Getenv("GOOGLE_GEOCODER_API_KEY"),
	}

	var err error
	if cfg.SearchRadiusDeg, err = getEnvAsFloat("SEARCH_RADIUS_DEG", 0.2); err != nil {
		return nil, err
	}
	if cfg.SufficiencyRatio, err = getEnvAsFloat("SUFFICIENCY_RATIO", 0.7); err != nil {
		return nil, err
	}
	if cfg.SufficiencyRatio <= 0 || cfg.SufficiencyRatio > 1 {
		return nil, fmt.Errorf("SUFFICIENCY_RATIO must be in (0,1], got %v", cfg.SufficiencyRatio)
	}

	if cfg.PreciseDeadline, err = getEnvAsDuration("PRECISE_DEADLINE", 25*time.Second); err != nil {
		return nil, err
	}
	if cfg.PowerTimeout, err = getEnvAsDuration("POWER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SearchCacheTTL, err = getEnvAsDuration("SEARCH_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	origins := getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, origin := range strings.Split(origins, ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvAsFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvAsDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
