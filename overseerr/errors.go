package overseerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid seerr configuration")
	// ErrRemoteService is the single error kind every failed call to the remote service matches
	ErrRemoteService = errors.New("seerr remote service error")
)

// ServiceError describes a failed call to the remote service. It covers
// transport failures, non-2xx responses and undecodable bodies alike.
type ServiceError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("seerr %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("seerr %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("seerr %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("seerr %s: failed", e.Op)
	}
}

// Unwrap returns the underlying cause
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match every ServiceError against ErrRemoteService
func (e *ServiceError) Is(target error) bool {
	return target == ErrRemoteService
}

// IsNotFound checks if the error indicates a not found response
func (e *ServiceError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *ServiceError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func serviceErr(op string, err error) error {
	return &ServiceError{Op: op, Err: err}
}
