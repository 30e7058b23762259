package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when a body exceeds the ingest limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Settlement error codes
const (
	// ErrCodeUnconfiguredDependency is used when settlement needs a payment
	// processor and none is configured
	ErrCodeUnconfiguredDependency = "ERR_UNCONFIGURED_DEPENDENCY"
	// ErrCodeProcessor is used when the external payment processor call
	// fails or times out
	ErrCodeProcessor = "ERR_PROCESSOR"
	// ErrCodeInvariantViolation is used for internal consistency defects
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// A missing processor is a deployment gap, not a client fault
	ErrCodeUnconfiguredDependency: http.StatusServiceUnavailable,
	// Upstream processor failure maps to a gateway error so clients can
	// retry the settlement safely
	ErrCodeProcessor:          http.StatusBadGateway,
	ErrCodeInvariantViolation: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to transport codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"VALIDATION_ERROR":        ErrCodeValidation,
	"UNCONFIGURED_DEPENDENCY": ErrCodeUnconfiguredDependency,
	"PROCESSOR_ERROR":         ErrCodeProcessor,
	"INVARIANT_VIOLATION":     ErrCodeInvariantViolation,
	"INTERNAL_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the transport format
// If the code is already in the transport format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
