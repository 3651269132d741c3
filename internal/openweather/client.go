// Package openweather implements the weather.Geocoder and
// weather.ForecastSource contracts against the OpenWeatherMap HTTP API:
// geo/1.0/direct for geocoding, data/2.5/weather for current conditions,
// and data/2.5/forecast for the 5-day/3-hour forecast.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/chikamichka/weatherlogd/internal/weather"
)

const (
	defaultGeoBaseURL     = "https://api.openweathermap.org/geo/1.0"
	defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2

	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Config bundles client settings. Zero values fall back to defaults; the
// base URLs are overridable for tests.
type Config struct {
	APIKey         string
	HTTPClient     *http.Client
	GeoBaseURL     string
	WeatherBaseURL string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *slog.Logger
}

// Client is a resilient OpenWeatherMap API client: bounded per-call
// timeout, exponential-backoff retries on transport and server errors,
// and a circuit breaker shared across all three endpoints.
type Client struct {
	apiKey         string
	httpClient     *http.Client
	geoBaseURL     string
	weatherBaseURL string
	timeout        time.Duration
	maxRetries     int
	breaker        *gobreaker.CircuitBreaker
	logger         *slog.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.GeoBaseURL == "" {
		cfg.GeoBaseURL = defaultGeoBaseURL
	}
	if cfg.WeatherBaseURL == "" {
		cfg.WeatherBaseURL = defaultWeatherBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:         cfg.APIKey,
		httpClient:     cfg.HTTPClient,
		geoBaseURL:     strings.TrimRight(cfg.GeoBaseURL, "/"),
		weatherBaseURL: strings.TrimRight(cfg.WeatherBaseURL, "/"),
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		breaker:        cb,
		logger:         cfg.Logger,
	}
}

// Geocode resolves a free-text query to candidate coordinates. An empty
// upstream result yields an empty slice, not an error.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]weather.GeoCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: location", weather.ErrMissingField)
	}
	if limit <= 0 {
		limit = weather.GeocodeLimit
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", c.apiKey)

	body, err := c.get(ctx, c.geoBaseURL+"/direct?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var payload []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   string  `json:"state"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding geocode response: %v", weather.ErrUpstreamRejected, err)
	}

	candidates := make([]weather.GeoCandidate, 0, len(payload))
	for _, p := range payload {
		candidates = append(candidates, weather.GeoCandidate{
			Name:       p.Name,
			Coordinate: weather.Coordinate{Latitude: p.Lat, Longitude: p.Lon},
			Country:    p.Country,
			State:      p.State,
		})
	}
	return candidates, nil
}

// currentPayload mirrors the data/2.5/weather response members we use.
type currentPayload struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []conditionPayload `json:"weather"`
}

type conditionPayload struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Current fetches current conditions for a coordinate pair.
func (c *Client) Current(ctx context.Context, coord weather.Coordinate) (weather.CurrentConditions, error) {
	body, err := c.get(ctx, c.weatherBaseURL+"/weather?"+coordValues(coord, c.apiKey).Encode())
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload currentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: decoding current conditions: %v", weather.ErrUpstreamRejected, err)
	}
	if len(payload.Weather) == 0 {
		return weather.CurrentConditions{}, fmt.Errorf("%w: current conditions missing weather member", weather.ErrUpstreamRejected)
	}

	return weather.CurrentConditions{
		Location:      payload.Name,
		Timestamp:     payload.Dt,
		TemperatureC:  payload.Main.Temp,
		FeelsLikeC:    payload.Main.FeelsLike,
		HumidityPct:   payload.Main.Humidity,
		PressureHpa:   payload.Main.Pressure,
		WindSpeedMps:  payload.Wind.Speed,
		ConditionCode: payload.Weather[0].ID,
		Condition:     payload.Weather[0].Main,
		Description:   payload.Weather[0].Description,
		Icon:          payload.Weather[0].Icon,
	}, nil
}

// Forecast fetches the multi-day forecast for a coordinate pair. The
// returned result carries both parsed samples and the verbatim body.
func (c *Client) Forecast(ctx context.Context, coord weather.Coordinate) (*weather.ForecastResult, error) {
	body, err := c.get(ctx, c.weatherBaseURL+"/forecast?"+coordValues(coord, c.apiKey).Encode())
	if err != nil {
		return nil, err
	}

	samples, err := ParseForecastSamples(body)
	if err != nil {
		return nil, err
	}

	return &weather.ForecastResult{Samples: samples, Raw: body}, nil
}

// ParseForecastSamples validates and flattens a raw data/2.5/forecast
// body into typed samples. Malformed or incomplete members are rejected
// at this boundary rather than propagated as undefined values. It is
// also used to re-normalize stored log payloads at read time.
func ParseForecastSamples(raw []byte) ([]weather.ForecastSample, error) {
	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp      float64 `json:"temp"`
				FeelsLike float64 `json:"feels_like"`
				Humidity  int     `json:"humidity"`
			} `json:"main"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Weather []conditionPayload `json:"weather"`
		} `json:"list"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding forecast response: %v", weather.ErrUpstreamRejected, err)
	}
	if payload.List == nil {
		return nil, fmt.Errorf("%w: forecast payload missing list member", weather.ErrUpstreamRejected)
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for i, item := range payload.List {
		if item.Dt == 0 || len(item.Weather) == 0 {
			return nil, fmt.Errorf("%w: forecast list item %d incomplete", weather.ErrUpstreamRejected, i)
		}
		samples = append(samples, weather.ForecastSample{
			Timestamp:     item.Dt,
			TemperatureC:  item.Main.Temp,
			FeelsLikeC:    item.Main.FeelsLike,
			HumidityPct:   item.Main.Humidity,
			WindSpeedMps:  item.Wind.Speed,
			ConditionCode: item.Weather[0].ID,
			Condition:     item.Weather[0].Main,
			Description:   item.Weather[0].Description,
			Icon:          item.Weather[0].Icon,
		})
	}
	return samples, nil
}

func coordValues(coord weather.Coordinate, apiKey string) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	values.Set("units", "metric")
	values.Set("appid", apiKey)
	return values
}

// get executes one GET with retries, exponential backoff, and the
// circuit breaker, and classifies failures into the error taxonomy.
// 4xx responses are not retried; transport errors, 429, and 5xx are.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrUpstreamUnavailable, err)
		}

		body, retryable, err := c.once(ctx, rawURL)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", weather.ErrUpstreamUnavailable)
		}
		if !retryable || attempt >= c.maxRetries {
			return nil, err
		}
		lastErr = err

		delay := initialBackoff * time.Duration(math.Pow(2, float64(attempt)))
		if delay > maxBackoff {
			delay = maxBackoff
		}
		c.logger.Warn("upstream call failed, retrying",
			"url_host", hostOf(rawURL),
			"attempt", attempt+1,
			"backoff", delay,
			"error", lastErr,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", weather.ErrUpstreamUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

// once performs a single request through the circuit breaker. The bool
// result reports whether the failure is worth retrying.
func (c *Client) once(ctx context.Context, rawURL string) ([]byte, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: building request: %v", weather.ErrUpstreamUnavailable, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrUpstreamUnavailable, err)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", weather.ErrUpstreamUnavailable, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp.StatusCode, body)
		}
		return body, nil
	})
	if err != nil {
		return nil, retryable(err), err
	}
	return result.([]byte), false, nil
}

// statusError maps a non-2xx response to the taxonomy, surfacing the
// upstream's own message when it provides one.
func statusError(status int, body []byte) error {
	msg := upstreamMessage(body)
	kind := weather.ErrUpstreamRejected
	if status == http.StatusTooManyRequests || status >= 500 {
		kind = weather.ErrUpstreamUnavailable
	}
	if msg != "" {
		return fmt.Errorf("%w: status %d: %s", kind, status, msg)
	}
	return fmt.Errorf("%w: status %d", kind, status)
}

// upstreamMessage extracts the provider's error message, if any.
// OpenWeatherMap error bodies look like {"cod":"404","message":"..."}.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

func retryable(err error) bool {
	return errors.Is(err, weather.ErrUpstreamUnavailable)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
