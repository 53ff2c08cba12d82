package utils

import "errors"

// Common application errors used across services. Services wrap these with
// context via fmt.Errorf("%w: ...") and handlers match them with errors.Is.
var (
	ErrValidation = errors.New("VALIDATION_ERROR")
	ErrNotFound   = errors.New("NOT_FOUND")
	ErrConflict   = errors.New("CONFLICT")
)
