// Package weather calls the weather/geocoding provider. Payloads are
// passed through as raw JSON; callers know the provider's shape.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

// Client holds the provider base URL and API key.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewClient returns a Client for the provider at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "weather").Logger(),
	}
}

// Current returns current conditions at the coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	return c.get(ctx, "/data/2.5/weather", coordParams(lat, lon))
}

// Forecast returns the multi-day forecast at the coordinates.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	return c.get(ctx, "/data/2.5/forecast", coordParams(lat, lon))
}

// Alerts returns severe-weather alerts at the coordinates.
func (c *Client) Alerts(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	q := coordParams(lat, lon)
	q.Set("exclude", "minutely,hourly,daily")
	return c.get(ctx, "/data/3.0/onecall", q)
}

// Geocode resolves a place name to coordinates.
func (c *Client) Geocode(ctx context.Context, query string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "5")
	return c.get(ctx, "/geo/1.0/direct", q)
}

// Reverse resolves coordinates to a place name.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	q := coordParams(lat, lon)
	q.Set("limit", "1")
	return c.get(ctx, "/geo/1.0/reverse", q)
}

func coordParams(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", "metric")
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	q.Set("appid", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "build weather request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "weather call failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "read weather response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("weather provider non-2xx")
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, apperr.New(apperr.RateLimited, "weather provider rate limit exceeded")
		case http.StatusPaymentRequired:
			return nil, apperr.New(apperr.QuotaExceeded, "weather provider quota exhausted")
		default:
			return nil, apperr.New(apperr.UpstreamFailure, fmt.Sprintf("weather provider returned %d", resp.StatusCode))
		}
	}
	if !json.Valid(data) {
		return nil, apperr.New(apperr.UpstreamFailure, "weather provider returned invalid JSON")
	}
	return json.RawMessage(data), nil
}
