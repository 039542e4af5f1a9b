package models

import (
	"errors"
	"fmt"
)

// ErrStaleFetch is returned when a fetch cycle was superseded by a newer
// refresh before its results could be published.
var ErrStaleFetch = errors.New("fetch superseded by a newer refresh")

// ErrNoRepositories is returned when a fetch is requested with an empty
// repository selection.
var ErrNoRepositories = errors.New("no repositories selected")

// TransportError wraps a network failure or a response body that could not
// be decoded as JSON.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError is an API-level failure reported by the proxy.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (%d): %s", e.Status, e.Message)
}

// ValidationError is malformed user input, e.g. a non-Slack URL.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError is a missing or invalid credential, or a failed organization
// membership probe.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RateLimitError is a 429 from the proxy.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return e.Message
}
