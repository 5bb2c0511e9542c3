package weather

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// epoch is substituted for timestamps that cannot be parsed.
var epoch = time.Unix(0, 0).UTC()

// naiveLayouts are tried for timestamps without a zone; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp coerces a raw provider timestamp into a Timestamp.
// Strings are parsed as RFC3339 (a trailing "Z" is a zero UTC offset) or as a
// zone-less ISO-8601 value in UTC. JSON numbers are unix seconds. Anything else
// yields the Unix epoch with Valid set to false.
func ParseTimestamp(raw any) Timestamp {
	switch v := raw.(type) {
	case time.Time:
		return Timestamp{Time: v, Valid: true}
	case *time.Time:
		if v != nil {
			return Timestamp{Time: *v, Valid: true}
		}
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return Timestamp{Time: time.Unix(int64(v), 0).UTC(), Valid: true}
		}
	case int64:
		return Timestamp{Time: time.Unix(v, 0).UTC(), Valid: true}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Timestamp{Time: time.Unix(n, 0).UTC(), Valid: true}
		}
	case string:
		return parseTimestampString(v)
	}
	return Timestamp{Time: epoch, Valid: false}
}

func parseTimestampString(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{Time: epoch, Valid: false}
	}

	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: ts, Valid: true}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Timestamp{Time: ts, Valid: true}
		}
	}
	return Timestamp{Time: epoch, Valid: false}
}

// Normalize truncates every hourly array to the horizon and parses the timestamps.
// The horizon is max(1, hours), further capped by the shortest of the time and wind
// arrays so that every slice of the result has the same length. Temperature is
// auxiliary and is left nil where the provider returned fewer values.
func Normalize(p HourlyPayload, hours int) Series {
	n := max(1, hours)
	n = min(n,
		len(p.Time),
		len(p.WindDirection),
		len(p.WindSpeed),
		len(p.WindGust),
	)

	s := Series{
		Times:         make([]Timestamp, n),
		Temperature:   make([]*float64, n),
		WindDirection: make([]*float64, n),
		WindSpeed:     make([]*float64, n),
		WindGust:      make([]*float64, n),
	}

	for i := 0; i < n; i++ {
		s.Times[i] = ParseTimestamp(p.Time[i])
	}
	copy(s.Temperature, p.Temperature[:min(n, len(p.Temperature))])
	copy(s.WindDirection, p.WindDirection[:n])
	copy(s.WindSpeed, p.WindSpeed[:n])
	copy(s.WindGust, p.WindGust[:n])

	return s
}
