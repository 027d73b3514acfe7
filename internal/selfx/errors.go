package selfx

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported marks a capability that does not exist on a view or adapter.
	// It is the standard library sentinel so callers can match either.
	ErrUnsupported = errors.ErrUnsupported

	// ErrUpstream is the kind of every *UpstreamError.
	ErrUpstream = errors.New("upstream failure")

	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidAmount    = errors.New("invalid amount (must be >= 0)")
	ErrInvalidRole      = errors.New("invalid contract role")
	ErrInvalidPayment   = errors.New("invalid payment")
	ErrInsufficientCash = errors.New("insufficient wallet cash")
	ErrNoCommits        = errors.New("repository has no commits")
)

// UpstreamError reports an unexpected status code returned by a provider.
type UpstreamError struct {
	Op         string
	StatusCode int
	URI        string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: received status code %d from [%s]", ErrUpstream, e.StatusCode, e.URI)
	}
	return fmt.Sprintf("%s: %s: received status code %d from [%s]", ErrUpstream, e.Op, e.StatusCode, e.URI)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// Upstream builds an *UpstreamError.
func Upstream(op string, statusCode int, uri string) error {
	return &UpstreamError{Op: op, StatusCode: statusCode, URI: uri}
}

// Unsupported returns an error wrapping ErrUnsupported with the given reason.
func Unsupported(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrUnsupported)
}
