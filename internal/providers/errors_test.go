package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
)

func TestClassifyHTTP(t *testing.T) {
	testCases := []struct {
		status        int
		wantTransient bool
	}{
		{status: http.StatusTooManyRequests, wantTransient: true},
		{status: http.StatusServiceUnavailable, wantTransient: true},
		{status: http.StatusInternalServerError, wantTransient: true},
		{status: http.StatusBadRequest, wantTransient: false},
		{status: http.StatusForbidden, wantTransient: false},
		{status: http.StatusNotFound, wantTransient: false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("status %d", tc.status), func(t *testing.T) {
			err := ClassifyHTTP(tc.status, errors.New("boom"))
			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient = %v, want %v", got, tc.wantTransient)
			}
		})
	}
}

func TestClassifyHTTPNilError(t *testing.T) {
	if err := ClassifyHTTP(http.StatusTooManyRequests, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestUnclassifiedErrorsAreNotRetried(t *testing.T) {
	if IsTransient(errors.New("unknown")) {
		t.Fatal("bare errors must be treated as permanent")
	}
}

func TestClassifyTransportKeepsCancellation(t *testing.T) {
	err := ClassifyTransport(context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsTransient(err) {
		t.Fatal("cancellation must not look retryable")
	}
}

func TestClassifyTransportFailuresAreTransient(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{name: "net error", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
		{name: "wrapped transport failure", err: fmt.Errorf("http request: %w", errors.New("connection reset"))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !IsTransient(ClassifyTransport(tc.err)) {
				t.Fatalf("transport failure must classify transient: %v", tc.err)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	if !errors.Is(Transient(inner), inner) {
		t.Fatal("Transient must wrap the original error")
	}
	if !errors.Is(Permanent(inner), inner) {
		t.Fatal("Permanent must wrap the original error")
	}
}
