package service

import (
	"errors"
	"fmt"

	"transparencia/internal/repository"
)

var (
	// ErrCounterMissing aborts a submission before any upload happens.
	ErrCounterMissing = repository.ErrCounterMissing

	ErrNotFound = repository.ErrNotFound

	// ErrUploadFailed aborts a submission after the receipt number was
	// reserved; the number is skipped, never reissued.
	ErrUploadFailed = errors.New("receipt upload failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a bad input field. Raised before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a field validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
