package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")

	// ErrValidation covers missing or invalid required fields. It is always
	// the caller's fault and never mutates state.
	ErrValidation = NewDomainError("VALIDATION_ERROR", "Invalid input provided")

	// ErrUnconfiguredDependency is returned when settlement is attempted
	// without a configured payment processor. Previews still work.
	ErrUnconfiguredDependency = NewDomainError("UNCONFIGURED_DEPENDENCY", "Required external dependency is not configured")

	// ErrProcessor wraps a failed or timed-out external charge attempt.
	// Rollover state is untouched and the operation is retryable with the
	// same idempotency key as long as the inputs are unchanged.
	ErrProcessor = NewDomainError("PROCESSOR_ERROR", "External payment processor call failed")

	// ErrInvariantViolation marks an internal defect (e.g. leftover seconds
	// >= 60 after a carry). It must never be observable in normal operation.
	ErrInvariantViolation = NewDomainError("INVARIANT_VIOLATION", "Internal invariant violated")
)
