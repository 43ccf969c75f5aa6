// Package errors provides the coded error type used by HTTP handlers.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Add-on errors
	CodeStatsUnavailable Code = "STATS_UNAVAILABLE"
	CodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
)

// HTTPStatus maps the code to the HTTP status written to clients.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
