package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database, sets file permissions, and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Set pragmas for performance and safety.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	// Set file permissions to 0600.
	if err := os.Chmod(dsn, 0600); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("setting file permissions: %w", err)
	}

	// Run migrations.
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) SaveLog(ctx context.Context, log *WeatherLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_logs (
			id, location, latitude, longitude,
			start_date, end_date, created_at, forecast_payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Location, log.Latitude, log.Longitude,
		log.StartDate.UTC(), log.EndDate.UTC(), log.CreatedAt.UTC(),
		string(log.ForecastPayload),
	)
	if err != nil {
		return fmt.Errorf("saving log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLog(ctx context.Context, id string) (*WeatherLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, location, latitude, longitude,
			start_date, end_date, created_at, forecast_payload
		FROM weather_logs
		WHERE id = ?`, id)

	log, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting log: %w", err)
	}
	return log, nil
}

func (s *SQLiteStore) ListLogs(ctx context.Context) ([]WeatherLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, latitude, longitude,
			start_date, end_date, created_at, forecast_payload
		FROM weather_logs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var result []WeatherLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		result = append(result, *log)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) UpdateLog(ctx context.Context, log *WeatherLog) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE weather_logs SET
			location = ?, latitude = ?, longitude = ?,
			start_date = ?, end_date = ?, forecast_payload = ?
		WHERE id = ?`,
		log.Location, log.Latitude, log.Longitude,
		log.StartDate.UTC(), log.EndDate.UTC(), string(log.ForecastPayload),
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("updating log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating log: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteLog(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weather_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting log: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CountLogs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting logs: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Shared helpers ---

type scanner interface {
	Scan(dest ...any) error
}

// scanLog reads one weather_logs row. Timestamps come back as strings
// from SQLite and as time.Time from pgx, so both are handled.
func scanLog(row scanner) (*WeatherLog, error) {
	var (
		log        WeatherLog
		startRaw   any
		endRaw     any
		createdRaw any
		payload    string
	)
	err := row.Scan(
		&log.ID, &log.Location, &log.Latitude, &log.Longitude,
		&startRaw, &endRaw, &createdRaw, &payload,
	)
	if err != nil {
		return nil, err
	}

	if log.StartDate, err = parseTimestamp(startRaw); err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	if log.EndDate, err = parseTimestamp(endRaw); err != nil {
		return nil, fmt.Errorf("parsing end_date: %w", err)
	}
	if log.CreatedAt, err = parseTimestamp(createdRaw); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	log.ForecastPayload = []byte(payload)
	return &log, nil
}

// parseTimestamp handles both time.Time and string timestamp values from SQLite.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05Z",
			"2006-01-02 15:04:05+00:00",
			"2006-01-02 15:04:05 +0000 UTC",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type: %T", v)
	}
}
