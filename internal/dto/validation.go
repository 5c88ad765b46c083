package dto

import (
	"github.com/go-playground/validator/v10"
)

// ValidateCurrencyCode enforces ISO 4217 style codes: exactly three
// uppercase ASCII letters.
func ValidateCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// RegisterCustomValidations registers application validations on the given
// validator engine. Called once at startup with gin's binding engine.
func RegisterCustomValidations(v *validator.Validate) error {
	return v.RegisterValidation("currencycode", ValidateCurrencyCode)
}
