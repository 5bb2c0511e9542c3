package weather

import (
	"context"
)

// Provider abstracts an hourly forecast source (e.g. Open-Meteo).
// FetchHourly must issue a single upstream call; callers do not retry.
type Provider interface {
	Name() string
	FetchHourly(ctx context.Context, lat, lon float64) (HourlyPayload, error)
}
