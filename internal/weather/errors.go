package weather

import "errors"

// Failure taxonomy for the weather-log pipeline. Every error leaving this
// package either is one of these sentinels or wraps one, so callers can
// classify with errors.Is while keeping the upstream message intact.
var (
	// ErrMissingInput: a live lookup was requested with neither a
	// location query nor a coordinate pair.
	ErrMissingInput = errors.New("missing location or coordinates")

	// ErrMissingField: a log write request is incomplete.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidDateRange: start date is not strictly before end date.
	ErrInvalidDateRange = errors.New("end date must be after start date")

	// ErrLocationNotFound: geocoding returned zero candidates.
	ErrLocationNotFound = errors.New("location not found")

	// ErrUpstreamUnavailable: transport-level failure talking to the
	// weather or geocoding provider. Safe to retry at the caller's
	// discretion.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRejected: the provider answered with a non-success
	// status or an unusable body. Retrying rarely helps.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrRecordNotFound: the store has no log record for the given id.
	ErrRecordNotFound = errors.New("log record not found")
)
