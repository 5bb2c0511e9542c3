package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/windapp/internal/chart"
	"github.com/i474232898/windapp/internal/weather"
)

// ForecastSource is the subset of weather.Service the refresh job needs.
type ForecastSource interface {
	Forecast(ctx context.Context, req weather.ForecastRequest) (weather.Series, error)
}

// RenderFunc publishes a rendered series at path.
type RenderFunc func(series weather.Series, path string) error

// Scheduler periodically re-renders the chart for one configured location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    ForecastSource
	render    RenderFunc
	request   weather.ForecastRequest
	path      string
	interval  time.Duration
}

// New creates a new Scheduler rendering lat/lon to path every interval.
func New(source ForecastSource, lat, lon float64, path string, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		source:    source,
		render:    chart.Render,
		request: weather.ForecastRequest{
			Lat:   lat,
			Lon:   lon,
			Hours: weather.DefaultHorizonHours,
		},
		path:     path,
		interval: interval,
	}
}

// Start schedules the refresh job, runs it once immediately and starts the scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			log.Printf("ERROR: scheduler: chart refresh failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: refreshing chart for %.4f,%.4f every %d minutes", s.request.Lat, s.request.Lon, minutes)
	return nil
}

// RunOnce fetches the configured location and renders it to the chart path.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	log.Println("scheduler: running chart refresh job")

	series, err := s.source.Forecast(ctx, s.request)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := s.render(series, s.path); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	log.Printf("scheduler: chart written to %s (%d points)", s.path, series.Len())
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
