// Package providers holds the failure classification shared by the prompt,
// image, and video synthesizer adapters. Every provider error is tagged
// transient (expected to resolve on retry: rate limits, temporary overload)
// or permanent (bad input, exhausted quota, malformed structured output) so
// the orchestrator's retry policy can act on it.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Class categorizes a provider failure for retry decisions.
type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
)

func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "permanent"
}

// Error wraps a provider failure with its retry classification.
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider failure: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable provider failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: ClassTransient, Err: err}
}

// Permanent wraps err as a non-retryable provider failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: ClassPermanent, Err: err}
}

// IsTransient reports whether err is classified as retryable. Unclassified
// errors are treated as permanent so an unknown failure is never retried
// speculatively.
func IsTransient(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class == ClassTransient
	}
	return false
}

// ClassifyHTTP maps an HTTP status from a provider API onto a classification.
// Rate limiting and server-side overload resolve on retry; everything else a
// provider rejects is permanent.
func ClassifyHTTP(status int, err error) error {
	if err == nil {
		return nil
	}
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusRequestTimeout:
		return Transient(err)
	}
	return Permanent(err)
}

// ClassifyTransport classifies failures that happened before any HTTP status
// was observed. Network-level errors and timeouts are transient; context
// cancellation is passed through untouched so callers can distinguish their
// own deadline from a provider fault.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Transient(err)
}
