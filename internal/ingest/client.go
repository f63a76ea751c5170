// Package ingest fetches hourly weather and place names from Open-Meteo and
// keeps the last saved location refreshed in the background.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/lox/bitecast/internal/httputil"
	"github.com/lox/bitecast/internal/metrics"
)

const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"

	maxErrorBody = 512
)

// StatusError is returned when Open-Meteo answers with a non-200 status.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// FetchResult describes one upstream fetch for auditing.
type FetchResult struct {
	Endpoint     string
	HTTPStatus   int
	ResponseSize int
	Attempts     int
	RecordCount  int
	Body         []byte
	Flags        []string
}

type OpenMeteo struct {
	client      *http.Client
	forecastURL string
	geocodeURL  string
	limiter     *rate.Limiter
	newBackOff  func() backoff.BackOff
	now         func() time.Time
}

type Option func(*OpenMeteo)

func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenMeteo) { o.client = c }
}

// WithBaseURLs points the client at alternative forecast and geocoding endpoints.
func WithBaseURLs(forecastURL, geocodeURL string) Option {
	return func(o *OpenMeteo) {
		o.forecastURL = forecastURL
		o.geocodeURL = geocodeURL
	}
}

// WithRateLimit caps outbound requests at rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *OpenMeteo) { o.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *OpenMeteo) { o.newBackOff = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *OpenMeteo) { o.now = now }
}

func NewOpenMeteo(opts ...Option) *OpenMeteo {
	o := &OpenMeteo{
		client:      httputil.NewClient(),
		forecastURL: DefaultForecastURL,
		geocodeURL:  DefaultGeocodeURL,
		limiter:     rate.NewLimiter(rate.Limit(5), 5),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 500 * time.Millisecond
			bo.MaxElapsedTime = 30 * time.Second
			return bo
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// get fetches base?params, retrying rate limits and server errors.
func (o *OpenMeteo) get(ctx context.Context, endpoint, base string, params url.Values) ([]byte, *FetchResult, error) {
	result := &FetchResult{Endpoint: endpoint}
	target := base + "?" + params.Encode()

	operation := func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait canceled: %w", err))
		}

		result.Attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		start := time.Now()
		resp, err := o.client.Do(req)
		metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
			}
			return fmt.Errorf("fetch %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		result.HTTPStatus = resp.StatusCode
		metrics.UpstreamCallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			statusErr := &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(b)}
			if retryable(resp.StatusCode) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		result.Body = body
		result.ResponseSize = len(body)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(o.newBackOff(), ctx)); err != nil {
		return nil, result, err
	}
	return result.Body, result, nil
}
