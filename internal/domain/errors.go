package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint rejected the write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks input rejected before any remote call was made.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned when an operation needs a signed-in owner.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrLastAddress     = errors.New("cannot delete the only active address")
	ErrDefaultAddress  = errors.New("cannot delete the default address without reassigning it")
	ErrNotEligible     = errors.New("order is not eligible for this action")
)

// ValidationError carries a field-level message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
