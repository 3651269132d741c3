package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed pgmigrations/*.sql
var pgMigrations embed.FS

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a PostgreSQL connection and runs migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "pgmigrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) SaveLog(ctx context.Context, log *WeatherLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_logs (
			id, location, latitude, longitude,
			start_date, end_date, created_at, forecast_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.Location, log.Latitude, log.Longitude,
		log.StartDate.UTC(), log.EndDate.UTC(), log.CreatedAt.UTC(),
		string(log.ForecastPayload),
	)
	if err != nil {
		return fmt.Errorf("saving log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLog(ctx context.Context, id string) (*WeatherLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, location, latitude, longitude,
			start_date, end_date, created_at, forecast_payload
		FROM weather_logs
		WHERE id = $1`, id)

	log, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting log: %w", err)
	}
	return log, nil
}

func (s *PostgresStore) ListLogs(ctx context.Context) ([]WeatherLog, error) {
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

func (s *PostgresStore) UpdateLog(ctx context.Context, log *WeatherLog) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE weather_logs SET
			location = $1, latitude = $2, longitude = $3,
			start_date = $4, end_date = $5, forecast_payload = $6
		WHERE id = $7`,
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

func (s *PostgresStore) DeleteLog(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weather_logs WHERE id = $1`, id)
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

func (s *PostgresStore) CountLogs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting logs: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
