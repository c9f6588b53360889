// Package validator adds the clinic's binding tags to go-playground/validator
// and turns its errors into messages fit for an API response.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-api/internal/schedule"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	TagTimeSlot       = "timeslot"
	TagStrongPassword = "strongpassword"
)

// Register installs the custom tags and reports fields by their json name.
func Register(v *govalidator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation(TagTimeSlot, func(fl govalidator.FieldLevel) bool {
		return schedule.IsValid(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register %s: %w", TagTimeSlot, err)
	}
	if err := v.RegisterValidation(TagStrongPassword, func(fl govalidator.FieldLevel) bool {
		return security.IsStrongPassword(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register %s: %w", TagStrongPassword, err)
	}
	return nil
}

// Describe renders the first validation failure in err. ok is false when err
// did not come from the validator.
func Describe(err error) (msg string, ok bool) {
	var errs govalidator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "", false
	}

	e := errs[0]
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field()), true
	case "email":
		return fmt.Sprintf("%s must be a valid email", e.Field()), true
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", e.Field(), e.Param()), true
	case TagTimeSlot:
		return "invalid time slot", true
	case TagStrongPassword:
		return fmt.Sprintf("%s must be at least %d characters and include an uppercase letter, a number and a special character", e.Field(), security.MinPasswordLen), true
	default:
		return fmt.Sprintf("%s is invalid", e.Field()), true
	}
}
