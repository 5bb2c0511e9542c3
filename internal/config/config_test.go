package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "OPENMETEO_BASE_URL", "HTTP_TIMEOUT", "FETCH_TIMEOUT", "CHART_ENABLED", "CHART_PATH", "CHART_INTERVAL", "CHART_LAT", "CHART_LON"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("expected 30s fetch timeout, got %s", cfg.FetchTimeout)
	}
	if cfg.Chart.Enabled || cfg.Chart.RefreshEnabled() {
		t.Errorf("chart must be disabled by default")
	}
	if cfg.Chart.Path != "static/figure.png" {
		t.Errorf("unexpected chart path %s", cfg.Chart.Path)
	}
}

func TestLoadChartRefresh(t *testing.T) {
	t.Setenv("CHART_ENABLED", "true")
	t.Setenv("CHART_LAT", "55.6")
	t.Setenv("CHART_LON", "12.5")
	t.Setenv("CHART_INTERVAL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Chart.RefreshEnabled() {
		t.Fatal("expected refresh to be enabled")
	}
	if *cfg.Chart.Lat != 55.6 || *cfg.Chart.Lon != 12.5 {
		t.Errorf("unexpected chart location %v,%v", *cfg.Chart.Lat, *cfg.Chart.Lon)
	}
	if cfg.Chart.Interval != 5*time.Minute {
		t.Errorf("unexpected interval %s", cfg.Chart.Interval)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad fetch timeout", "FETCH_TIMEOUT", "soon"},
		{"bad http timeout", "HTTP_TIMEOUT", "10"},
		{"bad chart flag", "CHART_ENABLED", "maybe"},
		{"bad chart lat", "CHART_LAT", "north"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoadChartLocationMustBePaired(t *testing.T) {
	t.Setenv("CHART_LAT", "55.6")
	t.Setenv("CHART_LON", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when only CHART_LAT is set")
	}
}
