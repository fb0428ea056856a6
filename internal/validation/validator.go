package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator used before persistence
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Struct validates a struct by its validate tags, returning a single
// readable error for the first failing field
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		return fmt.Errorf("field %s failed validation rule %s", e.Field(), e.Tag())
	}
	return err
}
