package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the catalog returned no detail payload
	ErrNotFound = errors.New("catalog: details not found")

	// ErrCircuitOpen indicates the circuit breaker is rejecting requests
	ErrCircuitOpen = errors.New("catalog: circuit open")
)

// NetworkError indicates the catalog could not be reached
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError indicates the catalog rejected the request
type HTTPError struct {
	Op   string
	Code int
	Body string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("catalog %s: unexpected status code %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("catalog %s: unexpected status code %d", e.Op, e.Code)
}

// StatusCode returns the HTTP status of an HTTPError anywhere in err's
// chain, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return 0
}

// IsNetwork reports whether err is a transport-level failure
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
