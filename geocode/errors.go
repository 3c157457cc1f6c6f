// Copyright 2025 The gmaps2kml Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error represents a reverse-geocoding failure.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies reverse-geocoding failures.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit means the provider throttled us.
	ErrorTypeRateLimit
	// ErrorTypeTimeout is a connection or response timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound means the coordinate has no known address.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest means the request itself was rejected.
	ErrorTypeInvalidRequest
	// ErrorTypeNetwork is a transport-level or 5xx failure.
	ErrorTypeNetwork
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the request may succeed.
func IsTransient(err error) bool {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		switch geoErr.Type {
		case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeNetwork:
			return true
		default:
			return false
		}
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection refused")
}

// ClassifyHTTPError maps an HTTP status code to a geocoding error.
func ClassifyHTTPError(statusCode int) *Error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusBadRequest:
		return &Error{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound:
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "location not found",
		}
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}
