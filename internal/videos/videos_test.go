package videos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chikamichka/weatherlogd/internal/weather"
)

func TestSearch(t *testing.T) {
	var gotQuery, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("maxResults")
		//nolint:errcheck
		w.Write([]byte(`{
			"items": [
				{"id": {"videoId": "abc123"}, "snippet": {"title": "Paris in 4K", "thumbnails": {"medium": {"url": "https://img.example/abc123.jpg"}}}},
				{"id": {"videoId": "def456"}, "snippet": {"title": "Paris food tour", "thumbnails": {"medium": {"url": "https://img.example/def456.jpg"}}}}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "yt-key", BaseURL: srv.URL, HTTPClient: srv.Client()})

	result, err := c.Search(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "travel highlights Paris" {
		t.Errorf("q = %q, want travel highlights Paris", gotQuery)
	}
	if gotMax != "3" {
		t.Errorf("maxResults = %q, want 3", gotMax)
	}
	if len(result) != 2 {
		t.Fatalf("results = %d, want 2", len(result))
	}
	if result[0].ID != "abc123" || result[0].Title != "Paris in 4K" {
		t.Errorf("result[0] = %+v", result[0])
	}
	if result[1].ThumbnailURL != "https://img.example/def456.jpg" {
		t.Errorf("thumbnail = %q", result[1].ThumbnailURL)
	}
}

func TestSearch_Unconfigured(t *testing.T) {
	c := NewClient(Config{})

	if c.Configured() {
		t.Error("Configured() = true without an API key")
	}
	if _, err := c.Search(context.Background(), "Paris"); err == nil {
		t.Error("expected error for unconfigured client")
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	c := NewClient(Config{APIKey: "yt-key"})

	_, err := c.Search(context.Background(), "   ")
	if !errors.Is(err, weather.ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestSearch_UpstreamErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"message": "quotaExceeded"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "yt-key", BaseURL: srv.URL, HTTPClient: srv.Client()})

	_, err := c.Search(context.Background(), "Paris")
	if !errors.Is(err, weather.ErrUpstreamRejected) {
		t.Fatalf("err = %v, want ErrUpstreamRejected", err)
	}
}

func TestSearch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Config{APIKey: "yt-key", BaseURL: url})

	_, err := c.Search(context.Background(), "Paris")
	if !errors.Is(err, weather.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}
