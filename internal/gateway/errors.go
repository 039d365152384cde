package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// genericFailure is the message used when a failed envelope carries none.
const genericFailure = "request failed"

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// EnvelopeError is a 2xx response whose envelope reported result=false.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the backend rejected the session token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// UserMessage turns any gateway error into the short text shown in a toast.
func UserMessage(err error) string {
	var envErr *EnvelopeError
	if errors.As(err, &envErr) {
		return envErr.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return http.StatusText(apiErr.StatusCode)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
