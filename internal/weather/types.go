package weather

import "encoding/json"

// Coordinate is a resolved geographic position. Immutable once produced
// by a geocode lookup; never accepted directly from log write requests.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoCandidate is one possible match for a free-text location query.
// Ordering follows the upstream relevance ranking; automated flows pick
// the first candidate.
type GeoCandidate struct {
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
	Country    string     `json:"country"`
	State      string     `json:"state,omitempty"`
}

// ForecastSample is a single upstream forecast data point. The provider
// delivers these at 3-hour spacing over a 5-day horizon.
type ForecastSample struct {
	Timestamp     int64   `json:"timestamp"` // unix seconds, UTC
	TemperatureC  float64 `json:"temperature_c"`
	FeelsLikeC    float64 `json:"feels_like_c"`
	HumidityPct   int     `json:"humidity_pct"`
	WindSpeedMps  float64 `json:"wind_speed_mps"`
	ConditionCode int     `json:"condition_code"`
	Condition     string  `json:"condition"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
}

// CurrentConditions is the normalized view of the provider's
// current-weather endpoint.
type CurrentConditions struct {
	Location      string  `json:"location,omitempty"`
	Timestamp     int64   `json:"timestamp"`
	TemperatureC  float64 `json:"temperature_c"`
	FeelsLikeC    float64 `json:"feels_like_c"`
	HumidityPct   int     `json:"humidity_pct"`
	PressureHpa   float64 `json:"pressure_hpa"`
	WindSpeedMps  float64 `json:"wind_speed_mps"`
	ConditionCode int     `json:"condition_code"`
	Condition     string  `json:"condition"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
}

// DailyForecastEntry is one representative sample per UTC calendar day.
// At most one entry exists per date; entries are ordered ascending.
type DailyForecastEntry struct {
	Date   string         `json:"date"` // YYYY-MM-DD
	Sample ForecastSample `json:"sample"`
}

// ForecastResult pairs the parsed forecast samples with the verbatim
// upstream body. Logs persist Raw so the stored record stays a faithful,
// re-normalizable source of truth.
type ForecastResult struct {
	Samples []ForecastSample
	Raw     json.RawMessage
}

// LiveWeather is the combined response for a live lookup.
type LiveWeather struct {
	Location   *GeoCandidate        `json:"location,omitempty"`
	Coordinate Coordinate           `json:"coordinate"`
	Current    CurrentConditions    `json:"current"`
	Daily      []DailyForecastEntry `json:"daily_forecast"`
}
