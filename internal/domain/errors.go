package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by latest-value queries with no matching reading.
var ErrNotFound = errors.New("reading not found")

// ErrDeviceMismatch is returned when an authenticated write declares a
// device_id other than the token's subject.
var ErrDeviceMismatch = errors.New("device identity mismatch")

// ErrUnknownKind is returned for reading kinds that are not registered.
var ErrUnknownKind = errors.New("unknown reading kind")

// MissingFieldError reports a mandatory payload field that was absent.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// InvalidFieldTypeError reports a payload field carrying the wrong JSON type.
type InvalidFieldTypeError struct {
	Field string
}

func (e InvalidFieldTypeError) Error() string {
	return fmt.Sprintf("%s has an invalid type", e.Field)
}

// IsValidation reports whether err is a payload validation failure that
// should surface as a client error rather than a server one.
func IsValidation(err error) bool {
	var missing MissingFieldError
	var invalid InvalidFieldTypeError
	return errors.As(err, &missing) || errors.As(err, &invalid)
}
