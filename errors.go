package capflow

// Closed error-kind taxonomy. Every domain failure is one of these seven
// kinds so callers can type-switch instead of matching strings.

import "fmt"

type ErrorKind string

const (
	InvalidField     ErrorKind = "INVALID_FIELD"
	BadRange         ErrorKind = "BAD_RANGE"
	NotFound         ErrorKind = "NOT_FOUND"
	ValidationFailed ErrorKind = "VALIDATION_FAILED"
	BadState         ErrorKind = "BAD_STATE"
	Cancelled        ErrorKind = "CANCELLED"
	Internal         ErrorKind = "INTERNAL"
)

// DomainError is the single error type returned by every exported capflow
// function. Field is empty unless Kind is InvalidField, ValidationFailed or
// BadRange.
type DomainError struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errInvalidField(field, format string, args ...any) error {
	return DomainError{Kind: InvalidField, Field: field, Message: fmt.Sprintf(format, args...)}
}

func errBadRange(field, format string, args ...any) error {
	return DomainError{Kind: BadRange, Field: field, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(format string, args ...any) error {
	return DomainError{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func errValidationFailed(field, format string, args ...any) error {
	return DomainError{Kind: ValidationFailed, Field: field, Message: fmt.Sprintf(format, args...)}
}

func errBadState(format string, args ...any) error {
	return DomainError{Kind: BadState, Message: fmt.Sprintf(format, args...)}
}

func errCancelled(format string, args ...any) error {
	return DomainError{Kind: Cancelled, Message: fmt.Sprintf(format, args...)}
}

func errInternal(format string, args ...any) error {
	return DomainError{Kind: Internal, Message: fmt.Sprintf(format, args...)}
}
