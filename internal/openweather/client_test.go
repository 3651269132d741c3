package openweather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chikamichka/weatherlogd/internal/weather"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIKey:         "test-key",
		HTTPClient:     srv.Client(),
		GeoBaseURL:     srv.URL + "/geo/1.0",
		WeatherBaseURL: srv.URL + "/data/2.5",
		Timeout:        2 * time.Second,
		MaxRetries:     0,
	})
}

func TestGeocode(t *testing.T) {
	var gotQuery, gotLimit string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geo/1.0/direct" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`[{"name":"Paris","lat":48.8566,"lon":2.3522,"country":"FR","state":"Ile-de-France"}]`)) //nolint:errcheck
	}))

	candidates, err := c.Geocode(context.Background(), "Paris", 5)
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}

	if gotQuery != "Paris" || gotLimit != "5" {
		t.Errorf("query/limit = %q/%q, want Paris/5", gotQuery, gotLimit)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	got := candidates[0]
	if got.Name != "Paris" || got.Country != "FR" || got.State != "Ile-de-France" {
		t.Errorf("candidate = %+v", got)
	}
	if got.Coordinate.Latitude != 48.8566 || got.Coordinate.Longitude != 2.3522 {
		t.Errorf("coordinate = %+v", got.Coordinate)
	}
}

func TestGeocode_NoMatchIsEmptyNotError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))

	candidates, err := c.Geocode(context.Background(), "Qwxyzzy123", 5)
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("candidates = %d, want 0", len(candidates))
	}
}

func TestGeocode_BlankQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a blank query")
	}))

	if _, err := c.Geocode(context.Background(), "   ", 5); !errors.Is(err, weather.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestCurrent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("units") != "metric" {
			t.Errorf("units = %q, want metric", r.URL.Query().Get("units"))
		}
		//nolint:errcheck
		w.Write([]byte(`{
			"name": "Paris",
			"dt": 1704103200,
			"main": {"temp": 8.2, "feels_like": 6.1, "humidity": 81, "pressure": 1012},
			"wind": {"speed": 4.6},
			"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}]
		}`))
	}))

	current, err := c.Current(context.Background(), weather.Coordinate{Latitude: 48.8566, Longitude: 2.3522})
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	if current.Location != "Paris" || current.Timestamp != 1704103200 {
		t.Errorf("current = %+v", current)
	}
	if current.TemperatureC != 8.2 || current.HumidityPct != 81 || current.PressureHpa != 1012 {
		t.Errorf("readings = %+v", current)
	}
	if current.ConditionCode != 803 || current.Condition != "Clouds" {
		t.Errorf("condition = %d %q", current.ConditionCode, current.Condition)
	}
}

func TestCurrent_MissingWeatherMemberRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Paris","dt":1704103200,"main":{"temp":8.2}}`)) //nolint:errcheck
	}))

	_, err := c.Current(context.Background(), weather.Coordinate{})
	if !errors.Is(err, weather.ErrUpstreamRejected) {
		t.Errorf("err = %v, want ErrUpstreamRejected", err)
	}
}

func TestForecast_KeepsVerbatimBody(t *testing.T) {
	body := `{"list":[{"dt":1704103200,"main":{"temp":3.4,"feels_like":1.2,"humidity":70},"wind":{"speed":2.2},"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01n"}]}],"city":{"name":"Paris"}}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/forecast" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(body)) //nolint:errcheck
	}))

	result, err := c.Forecast(context.Background(), weather.Coordinate{Latitude: 48.8566, Longitude: 2.3522})
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	if string(result.Raw) != body {
		t.Error("raw payload was not kept verbatim")
	}
	if len(result.Samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(result.Samples))
	}
	s := result.Samples[0]
	if s.Timestamp != 1704103200 || s.TemperatureC != 3.4 || s.Condition != "Clear" {
		t.Errorf("sample = %+v", s)
	}
}

func TestForecast_MissingListRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cod":"200"}`)) //nolint:errcheck
	}))

	_, err := c.Forecast(context.Background(), weather.Coordinate{})
	if !errors.Is(err, weather.ErrUpstreamRejected) {
		t.Errorf("err = %v, want ErrUpstreamRejected", err)
	}
}

func TestUpstreamRejectionCarriesMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`)) //nolint:errcheck
	}))

	_, err := c.Current(context.Background(), weather.Coordinate{})
	if !errors.Is(err, weather.ErrUpstreamRejected) {
		t.Fatalf("err = %v, want ErrUpstreamRejected", err)
	}
	if want := "Invalid API key"; err != nil && !strings.Contains(err.Error(), want) {
		t.Errorf("err = %q, want upstream message %q preserved", err, want)
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	c := NewClient(Config{
		APIKey:         "test-key",
		GeoBaseURL:     url,
		WeatherBaseURL: url,
		Timeout:        time.Second,
		MaxRetries:     0,
	})

	_, err := c.Current(context.Background(), weather.Coordinate{})
	if !errors.Is(err, weather.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:         "test-key",
		HTTPClient:     srv.Client(),
		GeoBaseURL:     srv.URL,
		WeatherBaseURL: srv.URL,
		Timeout:        time.Second,
		MaxRetries:     2,
	})

	if _, err := c.Geocode(context.Background(), "Paris", 5); err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`)) //nolint:errcheck
	}))

	_, err := c.Current(context.Background(), weather.Coordinate{})
	if !errors.Is(err, weather.ErrUpstreamRejected) {
		t.Fatalf("err = %v, want ErrUpstreamRejected", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx not retried)", calls)
	}
}
