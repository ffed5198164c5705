package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown entity kind or term type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Configuration Errors.

	// ErrMissingSearchConfig indicates a value is being indexed or searched
	// for an attribute (or entity kind) that has no AttributeSearchConfig.
	ErrMissingSearchConfig = errors.New("missing attribute search config")

	// ErrNoMainField indicates an entity kind has zero or several main fields.
	ErrNoMainField = errors.New("exactly one main field required")

	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownEngine indicates the configured suggestion engine is not recognised.
	ErrUnknownEngine = errors.New("unknown suggestion engine")

	// Calibration Errors.

	// ErrCalibrationMissing indicates the synthetic perfect-match document
	// was not found when computing the normalisation denominator.
	ErrCalibrationMissing = errors.New("calibration document missing")

	// ErrCalibrationScore indicates the calibration document produced a zero
	// or undefined score, so no relative score can be obtained.
	ErrCalibrationScore = errors.New("calibration score unusable")

	// Index Errors.

	// ErrIndexClosed indicates the index handle has been released.
	ErrIndexClosed = errors.New("index closed")

	// ErrSearchUnavailable indicates the search index is not configured.
	ErrSearchUnavailable = errors.New("search index unavailable")
)
