package sensor

import (
	"errors"
	"fmt"
)

// Domain errors for the sensor package.
//
// Every validation failure wraps ErrInvalidInput, so callers can branch on
// the category and still report the specific message:
//
//	if errors.Is(err, sensor.ErrInvalidInput) {
//	    // 400 with err's message
//	}
var (
	// ErrNotFound is returned when no sensor has the requested ID.
	ErrNotFound = errors.New("sensor: not found")

	// ErrInvalidInput is the category for all registration validation failures.
	ErrInvalidInput = errors.New("sensor: invalid input")

	// ErrMissingFields is returned when type, location or last_value is absent.
	ErrMissingFields = fmt.Errorf("%w: missing required fields", ErrInvalidInput)

	// ErrValueNotNumber is returned when last_value is not a JSON number.
	ErrValueNotNumber = fmt.Errorf("%w: last_value must be a number", ErrInvalidInput)

	// ErrFieldNotString is returned when a text field holds a non-string value.
	ErrFieldNotString = fmt.Errorf("%w: field must be a string", ErrInvalidInput)

	// ErrInvalidBody is returned when the request body is not a JSON object.
	ErrInvalidBody = fmt.Errorf("%w: body must be a JSON object", ErrInvalidInput)
)

// Client-facing messages. These are part of the HTTP contract and must not change.
const (
	MsgNotFound       = "Sensor not found"
	MsgMissingFields  = "Missing required fields"
	MsgValueNotNumber = "last_value must be a number"
	MsgInvalidBody    = "Request body must be a JSON object"
)

// Message returns the client-facing message for a sensor error.
// Errors outside this package fall back to err.Error().
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrMissingFields):
		return MsgMissingFields
	case errors.Is(err, ErrValueNotNumber):
		return MsgValueNotNumber
	case errors.Is(err, ErrInvalidBody):
		return MsgInvalidBody
	case errors.Is(err, ErrFieldNotString):
		var fe *FieldError
		if errors.As(err, &fe) {
			return fe.Field + " must be a string"
		}
		return "Fields must be strings"
	default:
		return err.Error()
	}
}

// FieldError attaches the offending field name to a validation error.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
