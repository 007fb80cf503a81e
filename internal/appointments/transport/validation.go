package transport

import (
	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidations adds the slotdate and slottime rules used by the request types.
func RegisterValidations(val *validator.Validator) error {
	if err := val.RegisterValidation("slotdate", func(fl playground.FieldLevel) bool {
		_, ok := domain.ParseDate(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}
	return val.RegisterValidation("slottime", func(fl playground.FieldLevel) bool {
		_, ok := domain.ParseTime(fl.Field().String())
		return ok
	})
}
