package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/windapp/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultOpenMeteoBaseURL is the public Open-Meteo API host.
const DefaultOpenMeteoBaseURL = "https://api.open-meteo.com"

// hourlyParameters are requested on every forecast call.
var hourlyParameters = []string{
	"temperature_2m",
	"wind_direction_10m",
	"wind_speed_10m",
	"wind_gusts_10m",
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider returns a provider for baseURL (DefaultOpenMeteoBaseURL when empty).
func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: strings.TrimRight(baseURL, "/") + "/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client:    client,
			UserAgent: "windapp/1.0",
		},
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// openMeteoForecast is the subset of the /v1/forecast response we consume.
type openMeteoForecast struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	HourlyUnits struct {
		WindSpeed string `json:"wind_speed_10m"`
	} `json:"hourly_units"`
	Hourly struct {
		Time          []any      `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		WindDirection []*float64 `json:"wind_direction_10m"`
		WindSpeed     []*float64 `json:"wind_speed_10m"`
		WindGusts     []*float64 `json:"wind_gusts_10m"`
	} `json:"hourly"`
}

// FetchHourly requests hourly temperature and wind (direction, speed, gusts in knots)
// without current conditions.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, lat, lon float64) (weather.HourlyPayload, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("hourly", strings.Join(hourlyParameters, ","))
		values.Set("wind_speed_unit", "kn")
		values.Set("current_weather", "false")
		values.Set("timezone", "GMT")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.HourlyPayload{}, err
	}
	defer resp.Body.Close()

	var payload openMeteoForecast
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.HourlyPayload{}, fmt.Errorf("failed to decode openmeteo response: %w", err)
	}

	switch u := payload.HourlyUnits.WindSpeed; u {
	case "", "kn", "knots":
	default:
		return weather.HourlyPayload{}, fmt.Errorf("openmeteo returned wind speed in %q, expected kn", u)
	}

	return weather.HourlyPayload{
		Time:          payload.Hourly.Time,
		Temperature:   payload.Hourly.Temperature,
		WindDirection: payload.Hourly.WindDirection,
		WindSpeed:     payload.Hourly.WindSpeed,
		WindGust:      payload.Hourly.WindGusts,
	}, nil
}

var _ weather.Provider = (*OpenMeteoProvider)(nil)
