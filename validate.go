package accesskit

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput checks create/update parameters against their struct tags
// and wraps failures in ErrInvalidInput.
func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		return NewError(ErrInvalidInput, err.Error())
	}
	return nil
}
