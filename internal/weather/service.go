package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chikamichka/weatherlogd/internal/store"
)

// GeocodeLimit is the default number of candidates requested per lookup.
const GeocodeLimit = 5

// Geocoder resolves a free-text query to candidate coordinates.
type Geocoder interface {
	// Geocode returns zero or more candidates in upstream relevance
	// order. An empty result is not an error.
	Geocode(ctx context.Context, query string, limit int) ([]GeoCandidate, error)
}

// ForecastSource retrieves weather data for a coordinate pair.
type ForecastSource interface {
	Current(ctx context.Context, coord Coordinate) (CurrentConditions, error)
	Forecast(ctx context.Context, coord Coordinate) (*ForecastResult, error)
}

// Service orchestrates geocoding, forecast fetching, normalization, and
// log persistence. All dependencies are injected so tests can substitute
// fakes per case.
type Service struct {
	geo    Geocoder
	source ForecastSource
	store  store.Store
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(geo Geocoder, source ForecastSource, st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{geo: geo, source: source, store: st, logger: logger}
}

// LogRequest carries the caller-supplied fields of a log write.
type LogRequest struct {
	Location  string    `json:"location"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// GetLiveWeather answers "give me weather for X". When coord is non-nil
// geocoding is skipped; otherwise query is resolved and the first
// candidate is used.
func (s *Service) GetLiveWeather(ctx context.Context, query string, coord *Coordinate) (*LiveWeather, error) {
	query = strings.TrimSpace(query)

	var resolved *GeoCandidate
	switch {
	case coord != nil:
		// Caller already has coordinates.
	case query != "":
		candidates, err := s.geo.Geocode(ctx, query, GeocodeLimit)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, query)
		}
		resolved = &candidates[0]
		coord = &resolved.Coordinate
	default:
		return nil, ErrMissingInput
	}

	current, samples, err := s.fetchCurrentAndForecast(ctx, *coord)
	if err != nil {
		return nil, err
	}

	return &LiveWeather{
		Location:   resolved,
		Coordinate: *coord,
		Current:    current,
		Daily:      NormalizeDaily(samples, ForecastHorizonDays),
	}, nil
}

// fetchCurrentAndForecast issues both provider calls concurrently and
// joins them. The first failure observed is reported; there is no
// partial-success mode.
func (s *Service) fetchCurrentAndForecast(ctx context.Context, coord Coordinate) (CurrentConditions, []ForecastSample, error) {
	var (
		current CurrentConditions
		samples []ForecastSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.source.Current(gctx, coord)
		if err != nil {
			return err
		}
		current = c
		return nil
	})
	g.Go(func() error {
		f, err := s.source.Forecast(gctx, coord)
		if err != nil {
			return err
		}
		samples = f.Samples
		return nil
	})

	if err := g.Wait(); err != nil {
		return CurrentConditions{}, nil, err
	}
	return current, samples, nil
}

// Geocode resolves a free-text query to candidate coordinates, in
// upstream relevance order.
func (s *Service) Geocode(ctx context.Context, query string, limit int) ([]GeoCandidate, error) {
	return s.geo.Geocode(ctx, query, limit)
}

// CreateLog validates the request, resolves coordinates, fetches the raw
// forecast, and persists a new record. Validation happens before any
// network call; a failed create leaves no record behind.
func (s *Service) CreateLog(ctx context.Context, req LogRequest) (*store.WeatherLog, error) {
	if err := validateLogRequest(req); err != nil {
		return nil, err
	}

	rec, err := s.buildLog(ctx, req)
	if err != nil {
		return nil, err
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	if err := s.store.SaveLog(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving log: %w", err)
	}

	s.logger.Info("log created", "id", rec.ID, "location", rec.Location)
	return rec, nil
}

// UpdateLog re-runs geocoding (the location may have changed), re-fetches
// the forecast, and replaces the stored payload wholesale. The fresh data
// is assembled before any write, so a failed update leaves the prior
// record untouched.
func (s *Service) UpdateLog(ctx context.Context, id string, req LogRequest) (*store.WeatherLog, error) {
	if err := validateLogRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.store.GetLog(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("reading log %s: %w", id, err)
	}

	rec, err := s.buildLog(ctx, req)
	if err != nil {
		return nil, err
	}
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateLog(ctx, rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("updating log %s: %w", id, err)
	}

	s.logger.Info("log updated", "id", rec.ID, "location", rec.Location)
	return rec, nil
}

// buildLog runs the geocode → forecast chain and assembles an unsaved
// record. ID and CreatedAt are left for the caller.
func (s *Service) buildLog(ctx context.Context, req LogRequest) (*store.WeatherLog, error) {
	candidates, err := s.geo.Geocode(ctx, req.Location, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, req.Location)
	}
	coord := candidates[0].Coordinate

	forecast, err := s.source.Forecast(ctx, coord)
	if err != nil {
		return nil, err
	}

	return &store.WeatherLog{
		Location:        req.Location,
		Latitude:        coord.Latitude,
		Longitude:       coord.Longitude,
		StartDate:       req.StartDate.UTC(),
		EndDate:         req.EndDate.UTC(),
		ForecastPayload: forecast.Raw,
	}, nil
}

// GetLog retrieves a single stored record.
func (s *Service) GetLog(ctx context.Context, id string) (*store.WeatherLog, error) {
	rec, err := s.store.GetLog(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("reading log %s: %w", id, err)
	}
	return rec, nil
}

// ListLogs returns all stored records, newest first.
func (s *Service) ListLogs(ctx context.Context) ([]store.WeatherLog, error) {
	logs, err := s.store.ListLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	return logs, nil
}

// DeleteLog removes a stored record by id.
func (s *Service) DeleteLog(ctx context.Context, id string) error {
	if err := s.store.DeleteLog(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return fmt.Errorf("deleting log %s: %w", id, err)
	}
	s.logger.Info("log deleted", "id", id)
	return nil
}

func validateLogRequest(req LogRequest) error {
	if strings.TrimSpace(req.Location) == "" {
		return fmt.Errorf("%w: location", ErrMissingField)
	}
	if req.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date", ErrMissingField)
	}
	if req.EndDate.IsZero() {
		return fmt.Errorf("%w: end_date", ErrMissingField)
	}
	if !req.StartDate.Before(req.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}
