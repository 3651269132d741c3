package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no log record exists for the given id.
var ErrNotFound = errors.New("log not found")

// Store defines the interface for weather-log persistence.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	// SaveLog inserts a new log record.
	SaveLog(ctx context.Context, log *WeatherLog) error

	// GetLog retrieves a single log by id. Returns ErrNotFound if absent.
	GetLog(ctx context.Context, id string) (*WeatherLog, error)

	// ListLogs retrieves all logs, newest first.
	ListLogs(ctx context.Context) ([]WeatherLog, error)

	// UpdateLog replaces an existing record wholesale, keyed by log.ID.
	// Returns ErrNotFound if no row matched.
	UpdateLog(ctx context.Context, log *WeatherLog) error

	// DeleteLog removes a record by id. Returns ErrNotFound if absent.
	DeleteLog(ctx context.Context, id string) error

	// CountLogs returns the total number of stored logs.
	CountLogs(ctx context.Context) (int, error)

	// Close closes the database connection.
	Close() error
}

// WeatherLog is the database model for a saved weather log: a location,
// a date range, and the forecast payload fetched at save time, stored
// verbatim in a JSON column so the daily-normalization policy can evolve
// without a schema migration.
type WeatherLog struct {
	ID              string          `json:"id"`
	Location        string          `json:"location"`
	Latitude        float64         `json:"latitude"`
	Longitude       float64         `json:"longitude"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	CreatedAt       time.Time       `json:"created_at"`
	ForecastPayload json.RawMessage `json:"forecast_payload"`
}
