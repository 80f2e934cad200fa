package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup file or a scan record cannot be found
	ErrNotFound = errors.New("not found")

	// ErrDecode is returned when a table file cannot be decoded with any configured encoding
	ErrDecode = errors.New("table decode failed")

	// ErrConnectivity is returned when the measurement provider cannot be reached
	ErrConnectivity = errors.New("measurement provider unavailable")

	// ErrParse is returned when the measurement provider returns a malformed body
	ErrParse = errors.New("malformed provider response")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// NotFoundError reports a missing table file (Path) or an unmatched search keyword (Keyword).
type NotFoundError struct {
	Path    string
	Keyword string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("file not found: %s", e.Path)
	}
	return fmt.Sprintf("no recent scan record matches keyword %q", e.Keyword)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DecodeError carries the last underlying error after every encoding attempt failed.
type DecodeError struct {
	Path      string
	Encodings []string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s (tried %v): %v", e.Path, e.Encodings, e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// ConnectivityError is a failed primary request: either a transport error (Err) or a
// non-success status code.
type ConnectivityError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
}

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ParseError wraps a JSON decoding failure for one provider endpoint.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// StatusError is a non-success status on a secondary request. Callers skip or degrade on it.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
}
