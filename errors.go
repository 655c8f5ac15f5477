package gamealert

import (
	"errors"
	"fmt"
)

// Error represents a gamealert library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for gamealert operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeDelivery indicates a destination was unreachable or refused the message.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeProvider indicates an external data provider failed or returned malformed data.
	ErrCodeProvider = "PROVIDER_ERROR"

	// ErrCodeDraw indicates the reward draw could not complete.
	ErrCodeDraw = "DRAW_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrChannelNotFound is returned when a destination channel no longer exists.
	ErrChannelNotFound = &Error{
		Code:    ErrCodeDelivery,
		Message: "channel not found",
	}

	// ErrForbidden is returned when the bot may not post to a destination.
	ErrForbidden = &Error{
		Code:    ErrCodeDelivery,
		Message: "missing access to destination",
	}

	// ErrUserNotFound is returned when a user cannot be resolved.
	ErrUserNotFound = &Error{
		Code:    ErrCodeDelivery,
		Message: "user not found",
	}

	// ErrNoVoters is returned when the reward draw has nobody to pick from.
	ErrNoVoters = &Error{
		Code:    ErrCodeDraw,
		Message: "no qualifying voters",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return hasCode(err, ErrCodeNoData)
}

// IsDelivery checks if an error is a delivery failure.
func IsDelivery(err error) bool {
	return hasCode(err, ErrCodeDelivery)
}

// IsProvider checks if an error is a provider failure.
func IsProvider(err error) bool {
	return hasCode(err, ErrCodeProvider)
}

// IsValidation checks if an error is a validation failure.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func hasCode(err error, code string) bool {
	var gaErr *Error
	if errors.As(err, &gaErr) {
		return gaErr.Code == code
	}
	return false
}

// QuotaDeniedError is returned by subscription creation when the quota policy denies the request.
// It carries a user-facing explanation and is a decision, not a failure.
type QuotaDeniedError struct {
	Decision Decision
}

// Error implements the error interface.
func (e *QuotaDeniedError) Error() string {
	return "quota denied: " + e.Decision.Reason
}

// IsQuotaDenied checks if an error is a quota denial and returns the decision.
func IsQuotaDenied(err error) (Decision, bool) {
	var denied *QuotaDeniedError
	if errors.As(err, &denied) {
		return denied.Decision, true
	}
	return Decision{}, false
}
