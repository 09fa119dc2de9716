package reliability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Kind tells the retry layer whether a failure may succeed on a later attempt.
type Kind int

const (
	KindPermanent Kind = iota
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// ServiceError is the error shape every external-service adapter returns.
type ServiceError struct {
	Provider   string
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Provider
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	msg += " (" + e.Kind.String() + ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(provider, op string, err error) error {
	return &ServiceError{Provider: provider, Op: op, Kind: KindTransient, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(provider, op string, err error) error {
	return &ServiceError{Provider: provider, Op: op, Kind: KindPermanent, Err: err}
}

// FromTransport wraps an error returned by an HTTP client call, classifying it
// with ClassifyTransport.
func FromTransport(provider, op string, err error) error {
	return &ServiceError{Provider: provider, Op: op, Kind: ClassifyTransport(err), Err: err}
}

// FromHTTPStatus builds the error for a non-2xx upstream response.
func FromHTTPStatus(provider, op string, code int, body string) error {
	return &ServiceError{
		Provider:   provider,
		Op:         op,
		Kind:       ClassifyHTTPStatus(code),
		StatusCode: code,
		Err:        fmt.Errorf("upstream response: %s", body),
	}
}

// IsTransient reports whether err carries a transient ServiceError.
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == KindTransient
	}
	return false
}

// ClassifyHTTPStatus maps an upstream status to a failure kind. Only
// timeout-like statuses are transient; quota and auth errors are not.
func ClassifyHTTPStatus(code int) Kind {
	switch code {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTransient
	default:
		return KindPermanent
	}
}

// ClassifyTransport maps a transport-level error to a failure kind.
// Cancellation of the caller's context is permanent.
func ClassifyTransport(err error) Kind {
	if err == nil {
		return KindPermanent
	}
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return KindTransient
	}
	return KindPermanent
}

// LinearBackoff returns a backoff that waits base*attempt after attempt n (n >= 1).
func LinearBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base * time.Duration(attempt)
	}
}
