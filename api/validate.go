package api

import "github.com/postboard/backend/api/validator"

// Aliases into the validation wrapper so handlers and tests deal with a
// single package.
type (
	Validator       = validator.Validator
	ValidationError = validator.ValidationError
)

// NewValidator returns a Validator ready for use.
func NewValidator() *Validator {
	return validator.New()
}
