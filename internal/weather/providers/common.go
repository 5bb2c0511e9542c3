package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// HTTPClientConfig bundles the outbound HTTP client and request settings.
type HTTPClientConfig struct {
	Client    *http.Client
	UserAgent string
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// IsUnavailable reports whether err means the upstream could not serve the request
// at all (breaker open, throttled or a 5xx).
func IsUnavailable(err error) bool {
	return errors.Is(err, errCircuitOpen) ||
		errors.Is(err, errRateLimited) ||
		errors.Is(err, errServerError)
}

// statusError carries the upstream status and, when available, its reason text.
type statusError struct {
	kind   error
	status int
	reason string
}

func (e *statusError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("%v: %d: %s", e.kind, e.status, e.reason)
	}
	return fmt.Sprintf("%v: %d", e.kind, e.status)
}

func (e *statusError) Unwrap() error {
	return e.kind
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// 4xx answers are the caller's fault and must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errUnexpected)
		},
	})
}

// doRequest executes exactly one HTTP request through the circuit breaker.
// There is no retry; a failed attempt is returned to the caller as-is.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		defer resp.Body.Close()
		se := &statusError{status: resp.StatusCode, reason: readReason(resp.Body)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			se.kind = errRateLimited
		case resp.StatusCode >= 500:
			se.kind = errServerError
		default:
			se.kind = errUnexpected
		}
		return nil, se
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// readReason extracts the "reason" field of an Open-Meteo style error body.
func readReason(body io.Reader) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Reason
}
