package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// OpenMeteoBaseURL is the forecast provider host.
	OpenMeteoBaseURL string

	// HTTPTimeout bounds each outbound HTTP call.
	HTTPTimeout time.Duration

	// FetchTimeout bounds how long a request waits on the runner for a forecast.
	FetchTimeout time.Duration

	Chart ChartConfig
}

// ChartConfig controls the optional chart route and refresh job.
type ChartConfig struct {
	Enabled  bool
	Path     string
	Interval time.Duration

	// Lat/Lon are the location rendered by the refresh job; nil disables the job.
	Lat *float64
	Lon *float64
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.OpenMeteoBaseURL = getenvDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	if cfg.Chart.Enabled, err = getenvBool("CHART_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Chart.Path = getenvDefault("CHART_PATH", "static/figure.png")
	if cfg.Chart.Interval, err = getenvDuration("CHART_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.Chart.Lat, err = getenvFloat("CHART_LAT"); err != nil {
		return nil, err
	}
	if cfg.Chart.Lon, err = getenvFloat("CHART_LON"); err != nil {
		return nil, err
	}
	if (cfg.Chart.Lat == nil) != (cfg.Chart.Lon == nil) {
		return nil, fmt.Errorf("CHART_LAT and CHART_LON must be set together")
	}

	return cfg, nil
}

// RefreshEnabled reports whether the chart refresh job should run.
func (c ChartConfig) RefreshEnabled() bool {
	return c.Enabled && c.Lat != nil && c.Lon != nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}
