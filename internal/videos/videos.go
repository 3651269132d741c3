// Package videos looks up travel-highlight videos for a saved location
// via the YouTube search API.
package videos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/chikamichka/weatherlogd/internal/weather"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

// maxResults matches the three-video strip the log view renders.
const maxResults = 3

// Video is a simplified search result.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client queries the YouTube search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Config bundles client settings. BaseURL is overridable for tests.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Client. An empty API key is allowed; Search
// then fails with a configuration error.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, httpClient: cfg.HTTPClient}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search returns up to three videos for "travel highlights <query>".
func (c *Client) Search(ctx context.Context, query string) ([]Video, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("youtube api key is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", weather.ErrMissingField)
	}

	values := url.Values{}
	values.Set("part", "snippet")
	values.Set("q", "travel highlights "+query)
	values.Set("type", "video")
	values.Set("maxResults", fmt.Sprintf("%d", maxResults))
	values.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
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
		var errPayload struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &errPayload)
		if errPayload.Error.Message != "" {
			return nil, fmt.Errorf("%w: status %d: %s", weather.ErrUpstreamRejected, resp.StatusCode, errPayload.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", weather.ErrUpstreamRejected, resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Medium struct {
						URL string `json:"url"`
					} `json:"medium"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", weather.ErrUpstreamRejected, err)
	}

	result := make([]Video, 0, len(payload.Items))
	for _, item := range payload.Items {
		result = append(result, Video{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ThumbnailURL: item.Snippet.Thumbnails.Medium.URL,
		})
	}
	return result, nil
}
