// Package cache provides an optional fetched-body cache with Redis backend.
package cache

import "time"

// Entry represents a cached fetch body.
type Entry struct {
	// Body is the raw response body as text
	Body string `json:"body"`

	// StatusCode is the upstream status code at fetch time
	StatusCode int `json:"status_code"`

	// FetchedAt is when the body was fetched
	FetchedAt time.Time `json:"fetched_at"`
}

// NewEntry creates an entry stamped with the current time.
func NewEntry(body string, statusCode int) *Entry {
	return &Entry{
		Body:       body,
		StatusCode: statusCode,
		FetchedAt:  time.Now(),
	}
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}
