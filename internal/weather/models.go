package weather

import (
	"time"
)

// DefaultHorizonHours is the number of hourly points served per request (5 days).
const DefaultHorizonHours = 120

// UnitKnots is the unit label for wind speed and gust values.
const UnitKnots = "knots"

// ForecastRequest identifies a forecast by coordinates.
// Lat/Lon are passed to the provider as given; no range checks are applied.
type ForecastRequest struct {
	Lat   float64
	Lon   float64
	Hours int
}

// Timestamp is a normalized hourly timestamp.
// Valid is false when the raw value could not be parsed, in which case Time holds the Unix epoch.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// ISO returns the RFC3339 form of the timestamp.
func (t Timestamp) ISO() string {
	return t.Time.Format(time.RFC3339)
}

// Series is the normalized hourly forecast for one location.
// All slices have the same length and keep the provider's chronological order.
// Values are nil where the provider returned null.
type Series struct {
	Times         []Timestamp
	Temperature   []*float64 // °C
	WindDirection []*float64 // degrees
	WindSpeed     []*float64 // knots
	WindGust      []*float64 // knots
}

// Len returns the number of hourly points.
func (s Series) Len() int {
	return len(s.Times)
}

// HourlyPayload is the raw hourly block returned by a provider, before normalization.
// Time entries may be strings, JSON numbers (unix seconds) or time.Time values.
type HourlyPayload struct {
	Time          []any
	Temperature   []*float64
	WindDirection []*float64
	WindSpeed     []*float64
	WindGust      []*float64
}
