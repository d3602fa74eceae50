package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceURL       string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FetchTimeout    time.Duration
	FetchMaxRetries int
	CacheMaxEntries int

	// Default query knobs.
	GeoSampleMax int
	TopDistricts int
	TopTypes     int
	MinYear      int
	MaxYear      int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	fetchMaxRetries, err := parseInt("FETCH_MAX_RETRIES", 3, 0, 10)
	if err != nil {
		return nil, err
	}

	cacheMaxEntries, err := parseInt("CACHE_MAX_ENTRIES", 4, 1, 64)
	if err != nil {
		return nil, err
	}

	geoSampleMax, err := parseInt("GEO_SAMPLE_MAX", 20000, 1, 1000000)
	if err != nil {
		return nil, err
	}

	topDistricts, err := parseInt("TOP_DISTRICTS", 15, 1, 100)
	if err != nil {
		return nil, err
	}

	topTypes, err := parseInt("TOP_TYPES", 10, 1, 100)
	if err != nil {
		return nil, err
	}

	minYear, err := parseInt("MIN_YEAR", 2015, 1900, 3000)
	if err != nil {
		return nil, err
	}

	maxYear, err := parseInt("MAX_YEAR", 2025, 1900, 3000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceURL:       os.Getenv("SOURCE_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		FetchTimeout:    fetchTimeout,
		FetchMaxRetries: fetchMaxRetries,
		CacheMaxEntries: cacheMaxEntries,
		GeoSampleMax:    geoSampleMax,
		TopDistricts:    topDistricts,
		TopTypes:        topTypes,
		MinYear:         minYear,
		MaxYear:         maxYear,
	}

	if cfg.SourceURL == "" {
		return nil, errors.New("SOURCE_URL is required")
	}
	if cfg.MinYear > cfg.MaxYear {
		return nil, errors.New("MIN_YEAR must not exceed MAX_YEAR")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	v := envOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parseInt(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (want %d..%d)", key, s, min, max)
	}
	return n, nil
}
