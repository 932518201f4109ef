// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sejmapi

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies API failures for the sync pipeline's policy decisions.
type ErrorKind string

const (
	// KindTransient covers timeouts, connection failures, 5xx and 429
	// responses. The retry loop re-attempts these.
	KindTransient ErrorKind = "transient"

	// KindPermanent covers schema mismatches and non-retryable HTTP statuses.
	// The affected id is skipped and recorded in the sync report.
	KindPermanent ErrorKind = "permanent"

	// KindNotFound is a 404: the resource legitimately does not exist. This
	// is a valid empty outcome, not a failure.
	KindNotFound ErrorKind = "not_found"
)

// APIError is the error type returned by every client method.
type APIError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	// RetryAfter is the server-requested backoff from a 429 response, zero
	// when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("sejm api %s: %s (HTTP %d): %v", e.Endpoint, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sejm api %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// transientError wraps err as a retryable failure.
func transientError(endpoint string, status int, err error) *APIError {
	return &APIError{Kind: KindTransient, Endpoint: endpoint, StatusCode: status, Err: err}
}

// permanentError wraps err as a non-retryable failure.
func permanentError(endpoint string, status int, err error) *APIError {
	return &APIError{Kind: KindPermanent, Endpoint: endpoint, StatusCode: status, Err: err}
}

// notFoundError marks a 404 response.
func notFoundError(endpoint string) *APIError {
	return &APIError{Kind: KindNotFound, Endpoint: endpoint, StatusCode: 404, Err: errors.New("resource not found")}
}

// IsTransient reports whether err is a retryable API failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransient
}

// IsPermanent reports whether err is a non-retryable API failure.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindPermanent
}

// IsNotFound reports whether err marks an absent resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// outcomeLabel maps an error to the metric label for the request outcome.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNotFound(err):
		return "not_found"
	case IsTransient(err):
		return "transient"
	default:
		return "permanent"
	}
}
