package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/windapp/internal/common"
	"github.com/i474232898/windapp/internal/runner"
	"github.com/i474232898/windapp/internal/weather"
	"github.com/i474232898/windapp/internal/weather/providers"
)

// InvalidPayloadMessage is returned for any malformed forecast request.
const InvalidPayloadMessage = "Invalid payload. Provide lat, lon, optional hours."

// Error codes returned to clients on a failed fetch. Details stay in the server log.
const (
	codeUpstreamTimeout     = "upstream_timeout"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamError       = "upstream_error"
	codeInternal            = "internal_error"
)

var validate = validator.New()

//go:embed web/windapp.html
var indexPage []byte

// ForecastService is what the forecast endpoint needs from the weather layer.
type ForecastService interface {
	Forecast(ctx context.Context, req weather.ForecastRequest) (weather.Series, error)
}

// Options toggles optional routes.
type Options struct {
	// ChartEnabled registers GET /plot.png serving ChartPath.
	ChartEnabled bool
	ChartPath    string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service ForecastService, opts Options) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(indexPage)
	})

	app.Post("/api/forecast", forecastHandler(service))

	if opts.ChartEnabled {
		app.Get("/plot.png", plotHandler(opts.ChartPath))
	}
}

// ErrorHandler renders framework and handler errors as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("ERROR: unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// forecastPayload is the POST /api/forecast body. Lat/Lon accept JSON numbers or
// numeric strings. Hours is accepted but not applied; the horizon is fixed.
type forecastPayload struct {
	Lat   *json.Number    `json:"lat" validate:"required"`
	Lon   *json.Number    `json:"lon" validate:"required"`
	Hours json.RawMessage `json:"hours"`
}

func (p forecastPayload) toRequest() (weather.ForecastRequest, error) {
	lat, err := strconv.ParseFloat(p.Lat.String(), 64)
	if err != nil {
		return weather.ForecastRequest{}, err
	}
	lon, err := strconv.ParseFloat(p.Lon.String(), 64)
	if err != nil {
		return weather.ForecastRequest{}, err
	}
	return weather.ForecastRequest{
		Lat:   lat,
		Lon:   lon,
		Hours: weather.DefaultHorizonHours,
	}, nil
}

func parseForecastPayload(body []byte) (weather.ForecastRequest, error) {
	var p forecastPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return weather.ForecastRequest{}, err
	}
	if err := validate.Struct(p); err != nil {
		return weather.ForecastRequest{}, err
	}
	return p.toRequest()
}

type forecastMeta struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Hours int     `json:"hours"`
	Unit  string  `json:"unit"`
}

type forecastResponse struct {
	Time      []string     `json:"time"`
	TimeValid []bool       `json:"time_valid"`
	WindDir   []*float64   `json:"wind_dir"`
	WindSpeed []*float64   `json:"wind_speed"`
	WindGust  []*float64   `json:"wind_gust"`
	Meta      forecastMeta `json:"meta"`
}

func newForecastResponse(req weather.ForecastRequest, s weather.Series) forecastResponse {
	resp := forecastResponse{
		Time:      make([]string, s.Len()),
		TimeValid: make([]bool, s.Len()),
		WindDir:   append(make([]*float64, 0, s.Len()), s.WindDirection...),
		WindSpeed: append(make([]*float64, 0, s.Len()), s.WindSpeed...),
		WindGust:  append(make([]*float64, 0, s.Len()), s.WindGust...),
		Meta: forecastMeta{
			Lat:   req.Lat,
			Lon:   req.Lon,
			Hours: req.Hours,
			Unit:  weather.UnitKnots,
		},
	}
	for i, ts := range s.Times {
		resp.Time[i] = ts.ISO()
		resp.TimeValid[i] = ts.Valid
	}
	return resp
}

func forecastHandler(service ForecastService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseForecastPayload(c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, InvalidPayloadMessage)
		}

		series, err := service.Forecast(c.UserContext(), req)
		if err != nil {
			requestID := uuid.NewString()
			code := classifyFetchError(err)
			log.Printf("ERROR: forecast fetch %s failed for %.4f,%.4f (%s): %v", requestID, req.Lat, req.Lon, code, err)

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":      "Forecast fetch failed: " + code,
				"code":       code,
				"request_id": requestID,
			})
		}

		return c.JSON(newForecastResponse(req, series))
	}
}

// classifyFetchError maps a fetch failure onto the closed set of client error codes.
func classifyFetchError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, runner.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return codeUpstreamTimeout
	case providers.IsUnavailable(err),
		common.HasAny(err.Error(), "connection refused", "no such host", "connection reset"):
		return codeUpstreamUnavailable
	case errors.Is(err, runner.ErrClosed):
		return codeInternal
	case errors.As(err, &netErr):
		return codeUpstreamUnavailable
	default:
		return codeUpstreamError
	}
}

// plotHandler serves the rendered chart with caching disabled. The file is read
// on every request so a freshly published chart is visible immediately.
func plotHandler(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fiber.NewError(fiber.StatusNotFound, "chart has not been rendered yet")
			}
			return err
		}

		c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
		c.Type("png")
		return c.Send(data)
	}
}
