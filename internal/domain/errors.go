package domain

import (
	"fmt"
	"net/http"
)

// ErrorType categorizes an error for HTTP mapping and logging.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeUpstream       ErrorType = "upstream"
	ErrorTypeServer         ErrorType = "server"
)

// APIError is the canonical error returned by the pipeline and mapped to
// an HTTP status by the server layer.
type APIError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	// StatusCode overrides the default mapping when set.
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the HTTP status for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Message: message}
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return &APIError{Type: ErrorTypeAuthentication, Message: message}
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// ErrServer creates an internal server error.
func ErrServer(message string) *APIError {
	return &APIError{Type: ErrorTypeServer, Message: message}
}
