package ols

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// ErrMalformedResponse indicates a payload that could not be decoded.
var ErrMalformedResponse = errors.New("ols: malformed response")

// APIError represents a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ols: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsRetryable reports whether a later attempt may succeed: throttling,
// server-side failures and transport errors are retryable, other client
// errors are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, ErrMalformedResponse)
}

// classify wraps failures that are not retryable with driven.ErrPermanent.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || IsRetryable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", driven.ErrPermanent, err)
}
