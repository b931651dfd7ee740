package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrNoTargets is returned when a batch contains no URLs.
	ErrNoTargets = errors.New("no urls provided")

	// ErrBatchAborted is returned when the batch context expires before all
	// fetch tasks reach a terminal state.
	ErrBatchAborted = errors.New("batch aborted")
)

// ErrorClass represents a classification of fetch errors for observability.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport-level errors (connection refused,
	// timeout, DNS failure) and unreadable response bodies.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents upstream 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents upstream 5xx responses.
	ErrorClassServer ErrorClass = "server"
)

// FetchError wraps a per-URL fetch failure with the offending target.
type FetchError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyStatus categorizes an upstream status code for metrics.
// Returns "" for non-error statuses.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
