package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/windapp/internal/runner"
)

// DefaultFetchTimeout bounds how long a caller waits for one forecast fetch.
const DefaultFetchTimeout = 30 * time.Second

// Service fetches and normalizes forecasts on the background runner.
type Service struct {
	provider     Provider
	runner       *runner.Runner
	fetchTimeout time.Duration
}

// NewService creates a new Service. A fetchTimeout <= 0 uses DefaultFetchTimeout.
func NewService(provider Provider, r *runner.Runner, fetchTimeout time.Duration) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Service{
		provider:     provider,
		runner:       r,
		fetchTimeout: fetchTimeout,
	}
}

// ForecastSource returns the name of the upstream provider.
func (s *Service) ForecastSource() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Forecast fetches the hourly series for req on the runner and waits at most the
// configured fetch timeout for it. The fetch is a single attempt.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) (Series, error) {
	if s.provider == nil {
		return Series{}, fmt.Errorf("no forecast provider configured")
	}

	log.Printf("DEBUG: Forecast called for %.4f,%.4f (%d hours) via %s", req.Lat, req.Lon, req.Hours, s.provider.Name())

	start := time.Now()
	series, err := runner.Do(ctx, s.runner, s.fetchTimeout, func(ctx context.Context) (Series, error) {
		payload, err := s.provider.FetchHourly(ctx, req.Lat, req.Lon)
		if err != nil {
			return Series{}, fmt.Errorf("%s: %w", s.provider.Name(), err)
		}
		return Normalize(payload, req.Hours), nil
	})
	if err != nil {
		return Series{}, err
	}

	log.Printf("DEBUG: Forecast for %.4f,%.4f returned %d points in %s", req.Lat, req.Lon, series.Len(), time.Since(start).Round(time.Millisecond))
	return series, nil
}
