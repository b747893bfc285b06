package memory

import (
	"errors"
	"fmt"
)

// ErrDeleteDeclined is returned when the user declines to confirm a delete.
// Nothing was dispatched to the service.
var ErrDeleteDeclined = errors.New("delete not confirmed")

// ValidationError reports input rejected before any request was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransportError wraps a network or service failure. Status is the HTTP
// status code when a response was received, zero otherwise.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: service returned HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that the record targeted by a delete no longer exists.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("memory %q not found", e.ID)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// UserMessage renders err as a sentence suitable for showing to the person
// driving the dashboard.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	var notFound *NotFoundError

	switch {
	case errors.As(err, &validation):
		switch validation.Field {
		case "text":
			return "Memory text is required."
		case "user_id":
			return "User ID is required."
		case "id":
			return "A memory ID is required."
		}
		return fmt.Sprintf("Invalid %s: %s.", validation.Field, validation.Reason)
	case errors.As(err, &notFound):
		return "Memory not found. It may already have been deleted."
	case errors.Is(err, ErrDeleteDeclined):
		return "Delete cancelled."
	case IsTransport(err):
		return "Could not reach the memory service. Try again."
	default:
		return err.Error()
	}
}
