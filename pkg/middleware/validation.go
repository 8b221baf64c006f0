package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// materialCodePattern matches waste catalogue codes like "17.01" or
// "20.01.38".
var materialCodePattern = regexp.MustCompile(`^\d{2}(\.\d{2}){1,2}$`)

// zoneCodePattern matches short upper-case zone codes like "Z" or "A-12".
var zoneCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9-]{0,15}$`)

// InitValidator registers the custom binding validations used by the
// request DTOs. Call once at startup.
func InitValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("materialcode", func(fl validator.FieldLevel) bool {
		return materialCodePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	if err := v.RegisterValidation("zonecode", func(fl validator.FieldLevel) bool {
		return zoneCodePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	return nil
}
