package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates request payloads using the underlying validator
// library.
type Validator struct {
	cli *validator.Validate
}

// ValidationError describes one rejected struct field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New initializes and returns a new instance of the Validator.
func New() *Validator {
	return &Validator{
		cli: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct validates s against its field tags and returns one
// ValidationError per rejected field, or nil when the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	err := v.cli.Struct(s)
	if err == nil {
		return nil
	}

	errs := make([]ValidationError, 0)
	for _, fe := range err.(validator.ValidationErrors) {
		errs = append(errs, ValidationError{
			Field:   fe.StructField(),
			Message: message(fe),
		})
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.StructField())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.StructField())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.StructField(), fe.Param())
	default:
		return fe.Error()
	}
}
