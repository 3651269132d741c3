package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chikamichka/weatherlogd/internal/export"
	"github.com/chikamichka/weatherlogd/internal/openweather"
	"github.com/chikamichka/weatherlogd/internal/store"
	"github.com/chikamichka/weatherlogd/internal/videos"
	"github.com/chikamichka/weatherlogd/internal/weather"
)

// WeatherService is the orchestration surface the handlers depend on.
// Satisfied by *weather.Service; faked in tests.
type WeatherService interface {
	GetLiveWeather(ctx context.Context, query string, coord *weather.Coordinate) (*weather.LiveWeather, error)
	Geocode(ctx context.Context, query string, limit int) ([]weather.GeoCandidate, error)
	CreateLog(ctx context.Context, req weather.LogRequest) (*store.WeatherLog, error)
	UpdateLog(ctx context.Context, id string, req weather.LogRequest) (*store.WeatherLog, error)
	GetLog(ctx context.Context, id string) (*store.WeatherLog, error)
	ListLogs(ctx context.Context) ([]store.WeatherLog, error)
	DeleteLog(ctx context.Context, id string) error
}

// VideoSearcher finds related videos for a location query.
type VideoSearcher interface {
	Configured() bool
	Search(ctx context.Context, query string) ([]videos.Video, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Service       WeatherService
	Videos        VideoSearcher
	Store         store.Store
	Logger        *slog.Logger
	StartTime     time.Time
	StorageDriver string
	StoragePath   string
	Version       string
}

// apiError is a JSON error response.
type apiError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg, Code: status})
}

// writeServiceError maps the error taxonomy to HTTP statuses, keeping
// the upstream message in the body for operator diagnosis.
func writeServiceError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, weather.ErrMissingInput),
		errors.Is(err, weather.ErrMissingField),
		errors.Is(err, weather.ErrInvalidDateRange):
		status = http.StatusBadRequest
	case errors.Is(err, weather.ErrLocationNotFound),
		errors.Is(err, weather.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, weather.ErrUpstreamRejected):
		status = http.StatusBadGateway
	case errors.Is(err, weather.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, err.Error())
}

func parseDate(s string) (time.Time, error) {
	// Try RFC3339 first, then YYYY-MM-DD, then Unix epoch.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format: %q (expected RFC3339, YYYY-MM-DD, or Unix epoch)", s)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// logResponse wraps a stored record with derived, read-time fields.
type logResponse struct {
	store.WeatherLog
	MapURL string                       `json:"map_url"`
	Daily  []weather.DailyForecastEntry `json:"daily_forecast,omitempty"`
}

func mapURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.4f&mlon=%.4f#map=10/%.4f/%.4f", lat, lon, lat, lon)
}

// GetLiveWeather handles GET /api/v1/weather
func (h *Handlers) GetLiveWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := q.Get("location")
	latStr, lonStr := q.Get("lat"), q.Get("lon")

	var coord *weather.Coordinate
	if latStr != "" || lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "invalid 'lat'/'lon' parameters")
			return
		}
		coord = &weather.Coordinate{Latitude: lat, Longitude: lon}
	}

	live, err := h.Service.GetLiveWeather(r.Context(), location, coord)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

// Geocode handles GET /api/v1/geocode
func (h *Handlers) Geocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing 'q' parameter")
		return
	}

	limit := weather.GeocodeLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = n
	}

	candidates, err := h.Service.Geocode(r.Context(), query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if candidates == nil {
		candidates = []weather.GeoCandidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// logRequestBody is the JSON body of log create/update requests.
type logRequestBody struct {
	Location  string `json:"location"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *Handlers) decodeLogRequest(r *http.Request) (weather.LogRequest, error) {
	var body logRequestBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		return weather.LogRequest{}, fmt.Errorf("invalid request body: %w", err)
	}

	req := weather.LogRequest{Location: body.Location}
	if body.StartDate != "" {
		t, err := parseDate(body.StartDate)
		if err != nil {
			return weather.LogRequest{}, fmt.Errorf("invalid 'start_date': %w", err)
		}
		req.StartDate = t
	}
	if body.EndDate != "" {
		t, err := parseDate(body.EndDate)
		if err != nil {
			return weather.LogRequest{}, fmt.Errorf("invalid 'end_date': %w", err)
		}
		req.EndDate = t
	}
	return req, nil
}

// CreateLog handles POST /api/v1/logs
func (h *Handlers) CreateLog(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLogRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.Service.CreateLog(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toLogResponse(rec, false))
}

// UpdateLog handles PUT /api/v1/logs/{id}
func (h *Handlers) UpdateLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, err := h.decodeLogRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.Service.UpdateLog(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toLogResponse(rec, false))
}

// GetLog handles GET /api/v1/logs/{id}
func (h *Handlers) GetLog(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.GetLog(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toLogResponse(rec, true))
}

// ListLogs handles GET /api/v1/logs
func (h *Handlers) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Service.ListLogs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]logResponse, 0, len(logs))
	for i := range logs {
		result = append(result, h.toLogResponse(&logs[i], false))
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteLog handles DELETE /api/v1/logs/{id}
func (h *Handlers) DeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteLog(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "log deleted"})
}

// toLogResponse derives read-time fields from a stored record. Daily
// normalization re-parses the verbatim payload; a payload that no longer
// parses is logged and omitted rather than failing the read.
func (h *Handlers) toLogResponse(rec *store.WeatherLog, withDaily bool) logResponse {
	resp := logResponse{
		WeatherLog: *rec,
		MapURL:     mapURL(rec.Latitude, rec.Longitude),
	}
	if withDaily {
		samples, err := openweather.ParseForecastSamples(rec.ForecastPayload)
		if err != nil {
			h.Logger.Warn("stored forecast payload is not normalizable", "id", rec.ID, "error", err)
			return resp
		}
		resp.Daily = weather.NormalizeDaily(samples, weather.ForecastHorizonDays)
	}
	return resp
}

// ExportLogs handles GET /api/v1/logs/export
func (h *Handlers) ExportLogs(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	if format != export.FormatJSON && format != export.FormatCSV {
		writeError(w, http.StatusBadRequest, "invalid 'format' parameter (json or csv)")
		return
	}

	logs, err := h.Service.ListLogs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if format == export.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="weather_logs.csv"`)
	} else {
		w.Header().Set("Content-Disposition", `attachment; filename="weather_logs.json"`)
	}

	if err := export.Write(w, format, logs); err != nil {
		h.Logger.Error("export failed", "format", format, "error", err)
	}
}

// SearchVideos handles GET /api/v1/videos
func (h *Handlers) SearchVideos(w http.ResponseWriter, r *http.Request) {
	if h.Videos == nil || !h.Videos.Configured() {
		writeError(w, http.StatusInternalServerError, "youtube api key is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing 'query' parameter")
		return
	}

	result, err := h.Videos.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if result == nil {
		result = []videos.Video{}
	}
	writeJSON(w, http.StatusOK, result)
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	type dbHealth struct {
		Driver    string `json:"driver"`
		Status    string `json:"status"`
		SizeBytes int64  `json:"size_bytes,omitempty"`
		TotalLogs int    `json:"total_logs"`
	}
	type healthResponse struct {
		Status   string   `json:"status"`
		Version  string   `json:"version"`
		Uptime   string   `json:"uptime"`
		Database dbHealth `json:"database"`
	}

	resp := healthResponse{
		Status:  "healthy",
		Version: h.Version,
		Uptime:  formatUptime(time.Since(h.StartTime)),
		Database: dbHealth{
			Driver: h.StorageDriver,
			Status: "ok",
		},
	}

	if count, err := h.Store.CountLogs(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database.Status = "error"
	} else {
		resp.Database.TotalLogs = count
	}

	// Database size (sqlite only; path omitted from the response).
	if h.StorageDriver == "sqlite" && h.StoragePath != "" {
		if info, err := os.Stat(h.StoragePath); err == nil {
			resp.Database.SizeBytes = info.Size()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
