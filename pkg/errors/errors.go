// Package errors defines the error taxonomy shared by the scraping pipeline.
package errors

import "fmt"

// ErrorType classifies a pipeline failure
type ErrorType string

const (
	// ErrorTypeNetwork covers transport-level failures (DNS, connect, timeout)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit is a 429 from the upstream API
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNotFound covers HTTP 4xx lookups and well-formed-but-empty envelopes
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeMalformed is an unexpected JSON shape from the API
	ErrorTypeMalformed ErrorType = "malformed_response"
	// ErrorTypeServerError is a 5xx from the upstream API
	ErrorTypeServerError ErrorType = "server_error"
	// ErrorTypeImageDecode is a downloaded image that fails to decode or verify
	ErrorTypeImageDecode ErrorType = "image_decode"
	// ErrorTypeStoreWrite is a failed write to the persisted store
	ErrorTypeStoreWrite ErrorType = "store_write"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a typed pipeline error carrying the originating HTTP status when one exists.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error.
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Code: code}
}

// IsRetryable reports whether an error type is worth another attempt.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeNotFound, ErrorTypeMalformed, ErrorTypeImageDecode, ErrorTypeStoreWrite:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status code indicates a retryable failure.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404: // won't change on retry
		return false
	default:
		return statusCode >= 500
	}
}
