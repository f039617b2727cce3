package services

import "errors"

// ValidationError marks input the caller must fix before retrying.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// IsValidation reports whether err was caused by invalid input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
